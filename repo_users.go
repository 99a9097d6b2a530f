package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var RotateUserSecretSQL = `UPDATE "users" AS "usr"
SET
	"jwt_secret" = ?,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the durable account directory consumed by the token lifecycle.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	// RotateSecret replaces the user's signing secret, instantly invalidating
	// every token previously issued to that user. Administrative use only.
	RotateSecret(ctx context.Context, id uuid.UUID) (string, error)
	RotateSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (string, error)

	// NextAccountSeq increments and returns the accounts-created counter used
	// to seed anonymous usernames and avatars.
	NextAccountSeq(ctx context.Context) (int64, error)
	NextAccountSeqTx(ctx context.Context, tx bun.IDB) (int64, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
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

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"username": username,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) RotateSecret(ctx context.Context, id uuid.UUID) (string, error) {
	return a.RotateSecretTx(ctx, a.db, id)
}

func (a *users) RotateSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (string, error) {
	secret, err := NewSigningSecret()
	if err != nil {
		return "", err
	}

	res, err := a.Repository.RawTx(ctx, tx, RotateUserSecretSQL, secret, time.Now(), id.String())
	if err != nil {
		return "", err
	}

	if len(res) == 0 {
		return "", repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return secret, nil
}

func (a *users) NextAccountSeq(ctx context.Context) (int64, error) {
	return a.NextAccountSeqTx(ctx, a.db)
}

func (a *users) NextAccountSeqTx(ctx context.Context, tx bun.IDB) (int64, error) {
	counter := &AccountCounter{}
	if _, err := tx.NewInsert().Model(counter).Exec(ctx); err != nil {
		return 0, err
	}
	return counter.ID, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
