package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
)

// ErrStoreUnavailable is returned while the store circuit is open.
var ErrStoreUnavailable = errors.New("store unavailable")

type MemberLister interface {
	MemberIDs(ctx context.Context, conversationID uint) ([]uint, error)
}

type LastOnlineToucher interface {
	TouchLastOnline(ctx context.Context, userID uint, at time.Time) error
}

// MemberService is the gateway's view of the relational store: conversation
// membership and last-online stamping. Membership is read fresh unless a cache
// TTL is configured; a cached list can miss joins and removals for up to the TTL.
type MemberService struct {
	members MemberLister
	users   LastOnlineToucher
	cache   *expirable.LRU[uint, []uint] // nil when caching is off
	breaker *gobreaker.CircuitBreaker
}

func NewMemberService(members MemberLister, users LastOnlineToucher, cacheSize int, cacheTTL time.Duration) *MemberService {
	if cacheSize <= 0 {
		cacheSize = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Store circuit changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	s := &MemberService{
		members: members,
		users:   users,
		breaker: breaker,
	}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[uint, []uint](cacheSize, nil, cacheTTL)
	}
	return s
}

// MembersOf returns the user ids of a conversation.
func (s *MemberService) MembersOf(ctx context.Context, conversationID uint) ([]uint, error) {
	if s.cache != nil {
		if ids, ok := s.cache.Get(conversationID); ok {
			return ids, nil
		}
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.members.MemberIDs(ctx, conversationID)
	})
	if err != nil {
		return nil, wrapBreakerError(err)
	}

	ids := result.([]uint)
	if s.cache != nil {
		s.cache.Add(conversationID, ids)
	}
	return ids, nil
}

// TouchLastOnline records that the user was seen now.
func (s *MemberService) TouchLastOnline(ctx context.Context, userID uint) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.users.TouchLastOnline(ctx, userID, time.Now())
	})
	return wrapBreakerError(err)
}

func wrapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
