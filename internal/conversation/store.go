package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMalformedState marks a persisted document that no longer decodes. The
// orchestrator recovers by starting the conversation over.
var ErrMalformedState = errors.New("malformed conversation state")

type Store interface {
	Get(ctx context.Context, customerID string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, customerID string) (bool, error)
}

type postgresStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Get(ctx context.Context, customerID string) (*State, error) {
	query := `SELECT state FROM conversations WHERE customer_id = $1`

	var doc []byte
	err := s.pool.QueryRow(ctx, query, customerID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(doc, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	state.CustomerID = customerID
	state.Normalize()
	return state, nil
}

// Save upserts the state document keyed by customer id. created_at is written
// once; updated_at on every write.
func (s *postgresStore) Save(ctx context.Context, state *State) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding conversation state: %w", err)
	}

	query := `
		INSERT INTO conversations (customer_id, state, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (customer_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, state.CustomerID, doc); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, customerID string) (bool, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE customer_id = $1`, customerID)
	if err != nil {
		return false, fmt.Errorf("deleting conversation: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
