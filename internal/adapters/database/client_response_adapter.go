package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

var clientResponseColumns = []interface{}{"id", "request_id", "client_id", "message", "accepted", "responded_at"}

// ClientResponseAdapter implements ClientResponseRepository
type ClientResponseAdapter struct {
	client *sqldb.Client
}

// NewClientResponseAdapter creates a new client response adapter
func NewClientResponseAdapter(client *sqldb.Client) repositories.ClientResponseRepository {
	return &ClientResponseAdapter{client: client}
}

// Create inserts a response row
func (a *ClientResponseAdapter) Create(ctx context.Context, response *entities.ClientResponse) error {
	if response == nil {
		return apperrors.NewInternalError("client response is nil", fmt.Errorf("client response is nil"))
	}
	return a.insert(ctx, a.client.DB(), response)
}

func (a *ClientResponseAdapter) insert(ctx context.Context, exec sqldb.Executor, response *entities.ClientResponse) error {
	ds := a.client.Dialect().Insert(migrations.TableClientResponse).Rows(goqu.Record{
		"request_id":   response.RequestID,
		"client_id":    response.ClientID,
		"message":      nullString(response.Message),
		"accepted":     response.Accepted,
		"responded_at": response.RespondedAt,
	})

	id, err := a.client.InsertReturningID(ctx, exec, ds)
	if err != nil {
		return apperrors.NewInternalError("failed to create client response", err)
	}
	response.ID = id
	return nil
}

// Accept upserts the client's accepted response for a request. The lookup and the
// write share one transaction; concurrent accepts are last-write-wins.
func (a *ClientResponseAdapter) Accept(ctx context.Context, requestID, clientID int64, at time.Time) (*entities.ClientResponse, error) {
	var result *entities.ClientResponse

	err := a.client.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := a.client.Dialect().
			Select(clientResponseColumns...).
			From(migrations.TableClientResponse).
			Where(goqu.Ex{"request_id": requestID, "client_id": clientID}).
			Order(goqu.C("id").Asc()).
			Limit(1).
			Prepared(true).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build query", err)
		}

		existing, err := scanClientResponse(tx.QueryRowContext(ctx, query, args...))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result = &entities.ClientResponse{
				RequestID:   requestID,
				ClientID:    clientID,
				Message:     entities.AcceptedMessage,
				Accepted:    true,
				RespondedAt: at,
			}
			return a.insert(ctx, tx, result)
		case err != nil:
			return apperrors.NewInternalError("failed to get client response", err)
		}

		query, args, err = a.client.Dialect().
			Update(migrations.TableClientResponse).
			Set(goqu.Record{"accepted": true, "responded_at": at}).
			Where(goqu.Ex{"id": existing.ID}).
			Prepared(true).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build update query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to accept client response", err)
		}

		existing.Accepted = true
		existing.RespondedAt = at
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListByRequest returns responses to a request ordered by ID
func (a *ClientResponseAdapter) ListByRequest(ctx context.Context, requestID int64) ([]*entities.ClientResponse, error) {
	return a.list(ctx, goqu.Ex{"request_id": requestID})
}

// ListByClient returns responses written by a client ordered by ID
func (a *ClientResponseAdapter) ListByClient(ctx context.Context, clientID int64) ([]*entities.ClientResponse, error) {
	return a.list(ctx, goqu.Ex{"client_id": clientID})
}

func (a *ClientResponseAdapter) list(ctx context.Context, where goqu.Ex) ([]*entities.ClientResponse, error) {
	query, args, err := a.client.Dialect().
		Select(clientResponseColumns...).
		From(migrations.TableClientResponse).
		Where(where).
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list client responses", err)
	}
	defer rows.Close()

	responses := make([]*entities.ClientResponse, 0)
	for rows.Next() {
		response, err := scanClientResponse(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan client response", err)
		}
		responses = append(responses, response)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list client responses", err)
	}

	return responses, nil
}

func scanClientResponse(row rowScanner) (*entities.ClientResponse, error) {
	response := &entities.ClientResponse{}
	var message sql.NullString
	var accepted sql.NullBool
	var respondedAt sql.NullTime

	err := row.Scan(
		&response.ID,
		&response.RequestID,
		&response.ClientID,
		&message,
		&accepted,
		&respondedAt,
	)
	if err != nil {
		return nil, err
	}

	response.Message = message.String
	response.Accepted = accepted.Bool
	response.RespondedAt = respondedAt.Time
	return response, nil
}
