package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
	lookups []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.lookups = append(s.lookups, args...)
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestToken(t *testing.T) {
	exec := &stubExecutor{token: " xi-123 "}
	store := NewStore(exec)
	key, err := store.Token(context.Background(), ProviderElevenLabs)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "xi-123" {
		t.Fatalf("expected xi-123, got %q", key)
	}
	if len(exec.lookups) != 1 || exec.lookups[0] != ProviderElevenLabs {
		t.Fatalf("unexpected lookup args: %#v", exec.lookups)
	}
}

func TestTokenNoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.Token(context.Background(), ProviderGemini)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestResolvePrefersConfiguredKey(t *testing.T) {
	exec := &stubExecutor{token: "stored"}
	store := NewStore(exec)
	key, err := store.Resolve(context.Background(), ProviderOpenAI, " env-key ")
	if err != nil || key != "env-key" {
		t.Fatalf("Resolve = %q, %v", key, err)
	}
	if len(exec.lookups) != 0 {
		t.Fatalf("configured key must not hit the database")
	}
	key, err = store.Resolve(context.Background(), ProviderOpenAI, "")
	if err != nil || key != "stored" {
		t.Fatalf("Resolve fallback = %q, %v", key, err)
	}

	var nilStore *Store
	if key, err := nilStore.Resolve(context.Background(), ProviderOpenAI, ""); err != nil || key != "" {
		t.Fatalf("nil store Resolve = %q, %v", key, err)
	}
}

func TestSetToken(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetToken(context.Background(), ProviderOpenAI, "secret", nil); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetTokenValidation(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetToken(context.Background(), ProviderGemini, " ", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := store.SetToken(context.Background(), "qwen", "k", nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
