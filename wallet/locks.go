package wallet

import (
	"context"
	"log"
	"time"

	"tiffin/rdx"
)

// lockTTL bounds how long a per-wallet operation lock is held.
const lockTTL = 5 * time.Second

// Locker serializes two-wallet operations across processes. It is an
// optimization on top of the CAS balance writes, not the correctness
// mechanism.
type Locker interface {
	AcquirePair(ctx context.Context, walletA, walletB string) (release func(), ok bool)
}

// RedisLocker implements Locker with per-wallet SetNX keys.
type RedisLocker struct{}

func NewRedisLocker() *RedisLocker { return &RedisLocker{} }

// AcquirePair takes both wallet locks in deterministic order so two opposing
// transfers cannot deadlock.
func (l *RedisLocker) AcquirePair(ctx context.Context, walletA, walletB string) (func(), bool) {
	lockA := "wallet_lock:" + walletA
	lockB := "wallet_lock:" + walletB
	if lockB < lockA {
		lockA, lockB = lockB, lockA
	}

	ok, err := rdx.RdxSetNX(lockA, "1", lockTTL)
	if err != nil || !ok {
		return nil, false
	}

	ok, err = rdx.RdxSetNX(lockB, "1", lockTTL)
	if err != nil || !ok {
		releaseKey(lockA)
		return nil, false
	}

	return func() {
		releaseKey(lockB)
		releaseKey(lockA)
	}, true
}

func releaseKey(key string) {
	if err := rdx.RdxDel(key); err != nil {
		log.Printf("wallet lock release failed for %s: %v", key, err)
	}
}
