// Command client is a CLI test harness for the wire protocol, adapted from
// the teacher's cmd/client/client.go: same flag-driven single-shot action
// shape, generalized from float64 price/qty flags and string usernames to
// decimal-string flags and uuid-typed user/order identifiers.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"lupine/internal/domain"
	"lupine/internal/wire"
	"lupine/internal/xdecimal"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:7878", "address of the engine's wire server")
	userID := flag.String("user", "", "uuid of the submitting user (required to place)")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel']")

	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "order type: 'limit' or 'market'")
	price := flag.String("price", "0", "limit price (decimal string, ignored for market orders)")
	baseQty := flag.String("base-qty", "0", "base quantity (decimal string)")
	quoteQty := flag.String("quote-qty", "0", "quote amount to lock (decimal string, buy orders; the spend budget for market buys)")

	orderID := flag.String("order-id", "", "uuid of the order to cancel")

	flag.Parse()

	if strings.ToLower(*action) == "place" && *userID == "" {
		fmt.Println("Error: -user is required to place an order")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		if err := sendPlaceOrder(conn, *userID, *sideStr, *typeStr, *price, *baseQty, *quoteQty); err != nil {
			log.Printf("Failed to place order: %v", err)
		} else {
			fmt.Printf("-> Sent %s %s order\n", strings.ToUpper(*sideStr), strings.ToUpper(*typeStr))
		}

	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -order-id is required for cancellation")
		}
		if err := sendCancelOrder(conn, *orderID); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for order %s\n", *orderID)
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// sendPlaceOrder constructs and sends a NewOrder message.
func sendPlaceOrder(conn net.Conn, userIDStr, sideStr, typeStr, price, baseQty, quoteQty string) error {
	uid, err := domain.ParseUserID(userIDStr)
	if err != nil {
		return fmt.Errorf("parse -user: %w", err)
	}

	side := domain.Bid
	if strings.EqualFold(sideStr, "sell") {
		side = domain.Ask
	}
	orderType := domain.Limit
	if strings.EqualFold(typeStr, "market") {
		orderType = domain.Market
	}

	limitPrice, err := xdecimal.Parse(price)
	if err != nil {
		return fmt.Errorf("parse -price: %w", err)
	}
	base, err := xdecimal.Parse(baseQty)
	if err != nil {
		return fmt.Errorf("parse -base-qty: %w", err)
	}
	quote, err := xdecimal.Parse(quoteQty)
	if err != nil {
		return fmt.Errorf("parse -quote-qty: %w", err)
	}

	args := domain.CreateOrderArgs{
		OrderType:  orderType,
		Side:       side,
		UserID:     uid,
		LimitPrice: limitPrice,
		BaseQty:    base,
		QuoteQty:   quote,
	}
	_, err = conn.Write(wire.EncodeNewOrder(args))
	return err
}

// sendCancelOrder constructs and sends a CancelOrder message.
func sendCancelOrder(conn net.Conn, orderIDStr string) error {
	oid, err := domain.ParseOrderID(orderIDStr)
	if err != nil {
		return fmt.Errorf("parse -order-id: %w", err)
	}
	_, err = conn.Write(wire.EncodeCancelOrder(oid))
	return err
}

// readReports continuously reads and prints Report frames from the server.
// Reports here are variable-length (a 19-byte header plus an error string),
// so unlike the teacher's fixed 53-byte header this reads one frame per
// connection Read call — acceptable for a test harness talking to a single
// engine over a single connection.
func readReports(conn net.Conn) {
	buf := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			fmt.Printf("Connection lost: %v\n", err)
			os.Exit(0)
		}
		report, err := wire.DecodeReport(buf[:n])
		if err != nil {
			log.Printf("malformed report: %v", err)
			continue
		}
		if report.Kind == wire.ErrorReport {
			fmt.Printf("\n[SERVER ERROR] order=%s %s\n", report.OrderID, report.ErrMsg)
		} else {
			fmt.Printf("\n[ACCEPTED] order=%s\n", report.OrderID)
		}
	}
}
