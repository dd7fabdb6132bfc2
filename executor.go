package main

import (
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	replyStored    = "STORED"
	replyNotStored = "NOT_STORED"
	replyEnd       = "END"
)

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func expiryAtMs(nowMs int64, expirySecs uint64) int64 {
	if expirySecs == 0 {
		return 0
	}
	return nowMs + int64(expirySecs)*1000
}

// Execute applies cmd against store and locks, returning the single-line
// reply to write back to the client (without its trailing CRLF).
func Execute(cmd Command, store *Store, locks *LockManager, metrics *Metrics) (string, error) {
	switch cmd.Kind {
	case CmdGet:
		return executeGet(cmd, store, locks, metrics)
	case CmdSet:
		return executeSet(cmd, store, locks, metrics)
	case CmdAdd:
		return executeAdd(cmd, store, locks, metrics)
	case CmdReplace:
		return executeReplace(cmd, store, locks, metrics)
	case CmdAppend:
		return executeAppend(cmd, store, locks, metrics, true)
	case CmdPrepend:
		return executeAppend(cmd, store, locks, metrics, false)
	default:
		return "", ErrInvalidInstruction
	}
}

// deleteExpired performs the two-phase deadlock-avoidance delete: the
// caller has already read the stale entry and released any reference into
// the store before this runs, so Remove never races with the read that
// discovered the expiry.
func deleteExpired(key string, store *Store, locks *LockManager) {
	store.Remove(key)
	locks.Remove(key)
}

func executeGet(cmd Command, store *Store, locks *LockManager, metrics *Metrics) (string, error) {
	lock := locks.Acquire(cmd.Key)
	lock.RLock()
	defer lock.RUnlock()
	entry, ok := store.Get(cmd.Key)

	if !ok {
		metrics.RecordGet(false)
		return replyEnd, nil
	}

	if !entry.Fresh(nowMs()) {
		deleteExpired(cmd.Key, store, locks)
		metrics.RecordGet(false)
		return replyEnd, nil
	}

	metrics.RecordGet(true)
	return formatValueReply(cmd.Key, entry), nil
}

func formatValueReply(key string, entry Entry) string {
	display := "[object]"
	if utf8.Valid(entry.Value) {
		display = string(entry.Value)
	}
	// The internal separator here is "\n\r", the reverse of a normal CRLF.
	// This is exact upstream wire behavior, preserved for compatibility.
	return fmt.Sprintf("VALUE %s %d %d \n\r%s \n\rEND", key, entry.ExpirySecs, len(entry.Value), display)
}

func executeSet(cmd Command, store *Store, locks *LockManager, metrics *Metrics) (string, error) {
	lock := locks.Acquire(cmd.Key)
	lock.Lock()
	defer lock.Unlock()

	store.Insert(cmd.Key, Entry{
		Value:      cmd.Data,
		ExpirySecs: cmd.ExpirySecs,
		ExpiryAtMs: expiryAtMs(nowMs(), cmd.ExpirySecs),
	})
	metrics.RecordOp(CmdSet)
	return replyStored, nil
}

func executeAdd(cmd Command, store *Store, locks *LockManager, metrics *Metrics) (string, error) {
	lock := locks.Acquire(cmd.Key)
	lock.Lock()
	defer lock.Unlock()

	metrics.RecordOp(CmdAdd)

	entry, ok := store.Get(cmd.Key)
	if ok && entry.Fresh(nowMs()) {
		return replyNotStored, nil
	}

	store.Insert(cmd.Key, Entry{
		Value:      cmd.Data,
		ExpirySecs: cmd.ExpirySecs,
		ExpiryAtMs: expiryAtMs(nowMs(), cmd.ExpirySecs),
	})
	return replyStored, nil
}

func executeReplace(cmd Command, store *Store, locks *LockManager, metrics *Metrics) (string, error) {
	lock := locks.Acquire(cmd.Key)
	lock.Lock()
	defer lock.Unlock()

	metrics.RecordOp(CmdReplace)

	entry, ok := store.Get(cmd.Key)
	if !ok {
		return replyNotStored, nil
	}
	if !entry.Fresh(nowMs()) {
		return replyNotStored, nil
	}

	store.Insert(cmd.Key, Entry{
		Value:      cmd.Data,
		ExpirySecs: cmd.ExpirySecs,
		ExpiryAtMs: expiryAtMs(nowMs(), cmd.ExpirySecs),
	})
	return replyStored, nil
}

func executeAppend(cmd Command, store *Store, locks *LockManager, metrics *Metrics, isAppend bool) (string, error) {
	lock := locks.Acquire(cmd.Key)
	lock.Lock()
	defer lock.Unlock()

	if isAppend {
		metrics.RecordOp(CmdAppend)
	} else {
		metrics.RecordOp(CmdPrepend)
	}

	entry, ok := store.Get(cmd.Key)
	if !ok {
		return replyNotStored, nil
	}
	if !entry.Fresh(nowMs()) {
		deleteExpired(cmd.Key, store, locks)
		return replyNotStored, nil
	}

	combined := make([]byte, 0, len(entry.Value)+len(cmd.Data))
	if isAppend {
		combined = append0(combined, entry.Value, cmd.Data)
	} else {
		combined = append0(combined, cmd.Data, entry.Value)
	}

	store.Insert(cmd.Key, Entry{
		Value:      combined,
		ExpirySecs: entry.ExpirySecs,
		ExpiryAtMs: entry.ExpiryAtMs,
	})
	return replyStored, nil
}

func append0(dst []byte, a, b []byte) []byte {
	dst = append(dst, a...)
	dst = append(dst, b...)
	return dst
}
