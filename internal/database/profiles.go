package database

import (
	"context"

	"github.com/google/uuid"
)

const createProfile = `
INSERT INTO profiles (email, name, role, hashed_password)
VALUES ($1, $2, $3, $4)
RETURNING id, email, name, role, hashed_password, created_at, updated_at
`

type CreateProfileParams struct {
	Email          string
	Name           string
	Role           string
	HashedPassword string
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRow(ctx, createProfile, arg.Email, arg.Name, arg.Role, arg.HashedPassword)
	var i Profile
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.Role, &i.HashedPassword, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getProfileByEmail = `
SELECT id, email, name, role, hashed_password, created_at, updated_at
FROM profiles
WHERE email = $1
`

func (q *Queries) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfileByEmail, email)
	var i Profile
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.Role, &i.HashedPassword, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getProfileByID = `
SELECT id, email, name, role, hashed_password, created_at, updated_at
FROM profiles
WHERE id = $1
`

func (q *Queries) GetProfileByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfileByID, id)
	var i Profile
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.Role, &i.HashedPassword, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}
