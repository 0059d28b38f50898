package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/notifications"
	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
)

var (
	// ErrTemplateNotFound is returned when no active template carries the requested name.
	ErrTemplateNotFound = apperrors.New("TEMPLATE_NOT_FOUND", "Notification template not found or not active", http.StatusNotFound)

	// ErrMissingVariable is returned when a template placeholder has no substitution.
	// Copies carry the *notifications.MissingVariableError as their internal error.
	ErrMissingVariable = apperrors.New("MISSING_VARIABLE", "Missing template variable", http.StatusBadRequest)
)

func missingVariableError(mv *notifications.MissingVariableError) error {
	return ErrMissingVariable.
		WithMessage("Missing template variable: " + strings.Join(mv.Names, ", ")).
		WithInternal(mv)
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
