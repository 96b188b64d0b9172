package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx     *fakeTx
	err    error
	begins int
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	f.begins++
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey{}, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestWithTx_NoBeginner(t *testing.T) {
	_, _, err := WithTx(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error without a connection")
	}
	if err.Error() != "no database connection available" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestTransactor_Commit(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	var sawTx bool
	err := NewTransactor(b).InTx(context.Background(), func(ctx context.Context) error {
		sawTx = TxFromContext(ctx) != nil
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawTx {
		t.Error("expected tx in callback context")
	}
	if !b.tx.committed || b.tx.rolledBack {
		t.Errorf("expected commit only, got committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
	}
}

func TestTransactor_RollbackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")
	err := NewTransactor(b).InTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if b.tx.committed || !b.tx.rolledBack {
		t.Errorf("expected rollback only, got committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
	}
}

func TestTransactor_RollbackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	defer func() {
		if recover() == nil {
			t.Error("expected panic to propagate")
		}
		if !b.tx.rolledBack {
			t.Error("expected rollback on panic")
		}
	}()
	NewTransactor(b).InTx(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	})
}

func TestTransactor_CommitError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}
	err := NewTransactor(b).InTx(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected commit error")
	}
}

func TestTransactor_BeginError(t *testing.T) {
	b := &fakeBeginner{err: errors.New("pool closed")}
	called := false
	err := NewTransactor(b).InTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected begin error")
	}
	if called {
		t.Error("callback must not run when begin fails")
	}
}

func TestTransactor_JoinsOuterTx(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	tr := NewTransactor(b)
	err := tr.InTx(context.Background(), func(ctx context.Context) error {
		return tr.InTx(ctx, func(ctx context.Context) error { return nil })
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.begins != 1 {
		t.Errorf("expected a single begin, got %d", b.begins)
	}
}
