package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lupine/internal/domain"
	"lupine/internal/xdecimal"
)

func newFundedLedger(t *testing.T, base, quote string) (*Ledger, domain.UserID) {
	t.Helper()
	l := New()
	uid := domain.NewUserID()
	l.Register(uid)
	bal, ok := l.Snapshot(uid)
	require.True(t, ok)
	bal.FreeBase = xdecimal.MustParse(base)
	bal.FreeQuote = xdecimal.MustParse(quote)
	l.Load([]domain.UserBalance{bal})
	return l, uid
}

func TestLockFunds_RejectsInsufficientQuote(t *testing.T) {
	l, uid := newFundedLedger(t, "0", "100")

	err := l.LockFunds(uid, domain.Bid, xdecimal.Zero(), xdecimal.MustParse("150"))

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	bal, _ := l.Snapshot(uid)
	assert.True(t, bal.LockedQuote.IsZero(), "a rejected lock must not partially apply")
}

func TestLockFunds_MovesFreeToLocked(t *testing.T) {
	l, uid := newFundedLedger(t, "0", "100")

	err := l.LockFunds(uid, domain.Bid, xdecimal.Zero(), xdecimal.MustParse("40"))
	require.NoError(t, err)

	bal, _ := l.Snapshot(uid)
	assert.True(t, bal.FreeQuote.Equal(xdecimal.MustParse("60")))
	assert.True(t, bal.LockedQuote.Equal(xdecimal.MustParse("40")))
}

func TestSettleTrade_Bid_CreditsBaseDebitsLockedQuote(t *testing.T) {
	l, uid := newFundedLedger(t, "0", "100")
	require.NoError(t, l.LockFunds(uid, domain.Bid, xdecimal.Zero(), xdecimal.MustParse("50")))

	err := l.SettleTrade(uid, domain.Bid, xdecimal.MustParse("10"), xdecimal.MustParse("5"))
	require.NoError(t, err)

	bal, _ := l.Snapshot(uid)
	assert.True(t, bal.FreeBase.Equal(xdecimal.MustParse("5")))
	assert.True(t, bal.LockedQuote.Equal(xdecimal.MustParse("0")))
}

func TestSettleTrade_Ask_CreditsQuoteDebitsLockedBase(t *testing.T) {
	l, uid := newFundedLedger(t, "5", "0")
	require.NoError(t, l.LockFunds(uid, domain.Ask, xdecimal.MustParse("5"), xdecimal.Zero()))

	err := l.SettleTrade(uid, domain.Ask, xdecimal.MustParse("10"), xdecimal.MustParse("5"))
	require.NoError(t, err)

	bal, _ := l.Snapshot(uid)
	assert.True(t, bal.FreeQuote.Equal(xdecimal.MustParse("50")))
	assert.True(t, bal.LockedBase.Equal(xdecimal.MustParse("0")))
}

func TestRefundRemaining_ReturnsLockedFundsOnCancel(t *testing.T) {
	l, uid := newFundedLedger(t, "0", "100")
	require.NoError(t, l.LockFunds(uid, domain.Bid, xdecimal.Zero(), xdecimal.MustParse("50")))

	err := l.RefundRemaining(uid, domain.Bid, xdecimal.MustParse("10"), xdecimal.MustParse("5"))
	require.NoError(t, err)

	bal, _ := l.Snapshot(uid)
	assert.True(t, bal.LockedQuote.Equal(xdecimal.MustParse("0")))
	assert.True(t, bal.FreeQuote.Equal(xdecimal.MustParse("100")))
}

func TestCheckInvariant_RejectsNegativeBalance(t *testing.T) {
	l := New()
	uid := domain.NewUserID()
	l.Register(uid)
	bal, _ := l.Snapshot(uid)
	bal.FreeBase = xdecimal.MustParse("-1")
	l.Load([]domain.UserBalance{bal})

	err := l.CheckInvariant(uid)
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestLockFunds_UnknownUser(t *testing.T) {
	l := New()
	err := l.LockFunds(domain.NewUserID(), domain.Bid, xdecimal.Zero(), xdecimal.MustParse("1"))
	require.Error(t, err)
}
