package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
	"github.com/ayofalola240/Okra-assessment/internal/observability"
)

const userColumns = `id::text, email, first_name, last_name, user_name, phone_number, gender,
	roles, dob, age, address_lga, address_city, address_state, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	return translate(op, r.prom.ObserveDB(op, fn))
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.find_by_email", func() error {
		row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

		return scanUser(row, &u)
	})

	return u, err
}

func (r *UsersRepo) Insert(ctx context.Context, u user.User) (user.User, error) {
	var out user.User

	err := r.observe("users.insert", func() error {
		row := r.pool.QueryRow(ctx, `
			INSERT INTO users (
				email, first_name, last_name, user_name, phone_number, gender,
				roles, dob, age, address_lga, address_city, address_state
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			RETURNING `+userColumns,
			u.Email, u.FirstName, u.LastName, u.UserName, u.PhoneNumber, string(u.Gender),
			rolesToText(u.Roles), u.DOB, u.Age, u.Address.LGA, u.Address.City, u.Address.State,
		)

		return scanUser(row, &out)
	})

	return out, err
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.find_by_id", func() error {
		row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

		return scanUser(row, &u)
	})

	return u, err
}

// Update holds the row lock from read to write so concurrent updates to the
// same user serialize.
func (r *UsersRepo) Update(ctx context.Context, id string, mutate func(user.User) user.User) (user.User, error) {
	var out user.User

	err := r.observe("users.update_tx", func() error {
		return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			var current user.User

			row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
			if err := scanUser(row, &current); err != nil {
				return err
			}

			next := mutate(current)

			row = tx.QueryRow(ctx, `
				UPDATE users
				SET first_name = $2,
					last_name = $3,
					user_name = $4,
					phone_number = $5,
					gender = $6,
					age = $7,
					address_lga = $8,
					address_city = $9,
					address_state = $10,
					updated_at = GREATEST(now(), updated_at)
				WHERE id = $1
				RETURNING `+userColumns,
				id, next.FirstName, next.LastName, next.UserName, next.PhoneNumber, string(next.Gender),
				next.Age, next.Address.LGA, next.Address.City, next.Address.State,
			)

			return scanUser(row, &out)
		})
	})

	return out, err
}

func (r *UsersRepo) Delete(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.delete", func() error {
		row := r.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id)

		return scanUser(row, &u)
	})

	return u, err
}

func (r *UsersRepo) ListPage(ctx context.Context, offset, limit int) ([]user.User, int, error) {
	out := make([]user.User, 0, limit)
	total := 0

	err := r.observe("users.list_page", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT `+userColumns+`, COUNT(*) OVER() AS total
			FROM users
			ORDER BY created_at ASC, id ASC
			LIMIT $1 OFFSET $2`,
			limit, offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			if err := scanUser(rows, &u, &total); err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	// past the last page the window count has no row to ride on
	if len(out) == 0 && offset > 0 {
		err = r.observe("users.count", func() error {
			return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
		})

		if err != nil {
			return nil, 0, err
		}
	}

	return out, total, nil
}

type summaryRow struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Age    int    `json:"age"`
}

// AggregateByCity runs the whole report in one statement. '' and NULL both
// land in the no-city group.
func (r *UsersRepo) AggregateByCity(ctx context.Context) ([]user.CityStat, error) {
	out := []user.CityStat{}

	err := r.observe("users.aggregate_by_city", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT NULLIF(address_city, '') AS city,
				AVG(age)::float8 AS average_age,
				COUNT(*) AS total_users,
				json_agg(
					json_build_object(
						'name', first_name || ' ' || last_name,
						'gender', gender,
						'age', age
					) ORDER BY created_at, id
				) AS users
			FROM users
			GROUP BY NULLIF(address_city, '')
			ORDER BY COUNT(*) DESC, NULLIF(address_city, '') COLLATE "C" ASC NULLS LAST`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				stat    user.CityStat
				rawJSON []byte
			)

			if err := rows.Scan(&stat.City, &stat.AverageAge, &stat.TotalUsers, &rawJSON); err != nil {
				return err
			}

			var summaries []summaryRow
			if err := json.Unmarshal(rawJSON, &summaries); err != nil {
				return fmt.Errorf("decode city group users: %w", err)
			}

			stat.Users = make([]user.UserSummary, 0, len(summaries))
			for _, s := range summaries {
				stat.Users = append(stat.Users, user.UserSummary{
					FullName: s.Name,
					City:     stat.City,
					Gender:   user.Gender(s.Gender),
					Age:      s.Age,
				})
			}

			out = append(out, stat)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func scanUser(row pgx.Row, u *user.User, extra ...any) error {
	var (
		gender string
		roles  []string
	)

	dest := []any{
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.UserName, &u.PhoneNumber, &gender,
		&roles, &u.DOB, &u.Age, &u.Address.LGA, &u.Address.City, &u.Address.State,
		&u.CreatedAt, &u.UpdatedAt,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	u.Gender = user.Gender(gender)
	u.Roles = make([]user.Role, 0, len(roles))
	for _, r := range roles {
		u.Roles = append(u.Roles, user.Role(r))
	}

	return nil
}

func rolesToText(roles []user.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}

	return out
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08 connection exception, 53 insufficient resources, 57P0x shutdown
		return strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57P0")
	}

	return false
}

// translate maps driver errors onto the domain sentinels, keeping the cause.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return user.ErrNotFound
	case IsUniqueViolation(err):
		return user.ErrDuplicateEmail
	case isUnavailable(err):
		return fmt.Errorf("%s: %w: %v", op, user.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
