package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// The WHERE clause on is_revoked makes both statements single-statement
// compare-and-swaps: a caller that reports zero affected rows lost the race
// or hit an already revoked record.
var ConsumeRefreshTokenSQL = `UPDATE "refresh_tokens"
SET
	"is_revoked" = TRUE,
	"updated_at" = ?
WHERE
	("id" = ?)
AND "is_revoked" = FALSE;`

var RevokeUserRefreshTokensSQL = `UPDATE "refresh_tokens"
SET
	"is_revoked" = TRUE,
	"updated_at" = ?
WHERE
	("user_id" = ?)
AND "is_revoked" = FALSE;`

// RefreshTokens is the durable store behind issued refresh tokens. It holds
// no business rules; rotation and breach handling live in Auther.
type RefreshTokens interface {
	Issue(ctx context.Context, ownerID uuid.UUID, expiresAt time.Time) (*RefreshToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, ownerID uuid.UUID, expiresAt time.Time) (*RefreshToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*RefreshToken, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*RefreshToken, error)

	// Consume marks the record revoked if and only if it was not revoked
	// already, reporting whether this caller performed the transition.
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)

	// RevokeAllForUser revokes every live record owned by the user and
	// returns how many records the cascade touched.
	RevokeAllForUser(ctx context.Context, ownerID uuid.UUID) (int64, error)
	RevokeAllForUserTx(ctx context.Context, tx bun.IDB, ownerID uuid.UUID) (int64, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(r *RefreshToken) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RefreshToken, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *refreshTokens) Issue(ctx context.Context, ownerID uuid.UUID, expiresAt time.Time) (*RefreshToken, error) {
	return a.IssueTx(ctx, a.db, ownerID, expiresAt)
}

func (a *refreshTokens) IssueTx(ctx context.Context, tx bun.IDB, ownerID uuid.UUID, expiresAt time.Time) (*RefreshToken, error) {
	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    ownerID,
		ExpiresAt: expiresAt,
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *refreshTokens) GetByID(ctx context.Context, id uuid.UUID) (*RefreshToken, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *refreshTokens) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *refreshTokens) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.ConsumeTx(ctx, a.db, id)
}

func (a *refreshTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewRaw(ConsumeRefreshTokenSQL, time.Now(), id.String()).Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (a *refreshTokens) RevokeAllForUser(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return a.RevokeAllForUserTx(ctx, a.db, ownerID)
}

func (a *refreshTokens) RevokeAllForUserTx(ctx context.Context, tx bun.IDB, ownerID uuid.UUID) (int64, error) {
	res, err := tx.NewRaw(RevokeUserRefreshTokensSQL, time.Now(), ownerID.String()).Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
