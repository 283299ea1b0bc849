package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/school-reports/internal/config"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage login accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a login account",
	Long: `Create a teacher account. There is no self sign-up; every account is
created here.

Example:
  school-reports user create --email guru@school.edu.my --password 's3cret!!' --name "Cikgu Aminah"`,
	RunE: runUserCreate,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().String("email", "", "Login email (required)")
	userCreateCmd.Flags().String("password", "", "Login password (required)")
	userCreateCmd.Flags().String("name", "", "Display name")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
}

// newUser validates the account fields and hashes the password.
func newUser(email, password, name string, cost int) (*database.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validator.New().Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &database.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(name),
	}, nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	user, err := newUser(mustGetString(cmd, "email"), mustGetString(cmd, "password"),
		mustGetString(cmd, "name"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	cfg := config.Load()
	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	store, err := database.GetUserStore(ctx)
	if err != nil {
		return err
	}
	existing, err := store.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("checking existing user: %w", err)
	}
	if existing != nil {
		return errors.New("a user with this email already exists")
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return err
	}

	fmt.Printf("Created user %s (%s)\n", user.Email, user.ID)
	return nil
}
