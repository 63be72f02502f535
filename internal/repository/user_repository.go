package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

const userColumns = `id, email, username, name, phone, department, profile_pic, password_hash, role,
               is_active, is_staff, is_superuser, is_verified, verification_token,
               verification_token_expiry, date_joined, last_login`

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, username, name, phone, department, profile_pic, password_hash, role,
                           is_active, is_staff, is_superuser, is_verified, verification_token, verification_token_expiry)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, date_joined`

	err := r.db.QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.Name,
		user.Phone,
		user.Department,
		user.ProfilePic,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		user.IsVerified,
		user.VerificationToken,
		user.VerificationTokenExpiry,
	).Scan(&user.ID, &user.DateJoined)
	return mapUserConstraint(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, username=$2, name=$3, phone=$4, department=$5, profile_pic=$6,
            password_hash=$7, role=$8, is_active=$9, is_staff=$10, is_superuser=$11, is_verified=$12,
            verification_token=$13, verification_token_expiry=$14, last_login=$15
        WHERE id=$16`

	cmd, err := r.db.Exec(ctx, query,
		user.Email,
		user.Username,
		user.Name,
		user.Phone,
		user.Department,
		user.ProfilePic,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		user.IsVerified,
		user.VerificationToken,
		user.VerificationTokenExpiry,
		user.LastLogin,
		user.ID,
	)
	if err != nil {
		return mapUserConstraint(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token=$1`, token)
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email)=LOWER($1))`, email).Scan(&exists)
	return exists, err
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username).Scan(&exists)
	return exists, err
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY name, id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Name,
		&user.Phone,
		&user.Department,
		&user.ProfilePic,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.IsStaff,
		&user.IsSuperuser,
		&user.IsVerified,
		&user.VerificationToken,
		&user.VerificationTokenExpiry,
		&user.DateJoined,
		&user.LastLogin,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func mapUserConstraint(err error) error {
	if err == nil {
		return nil
	}
	switch constraint, ok := uniqueViolation(err); {
	case ok && constraint == "users_email_lower_key":
		return domain.ErrDuplicateEmail
	case ok && constraint == "users_username_key":
		return domain.ErrDuplicateUsername
	}
	return err
}
