package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// CreateUserCommand adds a local account without going through /setup.
type CreateUserCommand struct {
	DatabasePath string
	Username     string
	Email        string
	Password     string
	Role         string
	BcryptCost   int

	Out io.Writer
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{Out: os.Stdout}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Username, "username", "", "Account username (required)")
	fs.StringVar(&cmd.Email, "email", "", "Account email (required)")
	fs.StringVar(&cmd.Password, "password", os.Getenv("BOOKSHELF_PASSWORD"), "Password, at least 12 characters (defaults to $BOOKSHELF_PASSWORD)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleReader), "Role: admin or reader")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost factor")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a local account for AUTH_MODE=local.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  BOOKSHELF_PASSWORD=... %s create-user -username alice -email alice@example.com\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-user -username admin -email admin@example.com -role admin -password ...\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case cmd.Username == "":
		return fmt.Errorf("required flag -username not provided")
	case cmd.Email == "":
		return fmt.Errorf("required flag -email not provided")
	case cmd.Password == "":
		return fmt.Errorf("password not provided: use -password or BOOKSHELF_PASSWORD")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	db, err := database.NewQuietDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	// The local profile keeps id 1 so data created before sign-in was
	// enabled never attaches to a real account.
	if _, err := db.EnsureLocalProfile(); err != nil {
		return err
	}

	service := auth.NewService(db.DB, config.Auth{Mode: config.AuthModeLocal, BcryptCost: cmd.BcryptCost})
	profile, err := service.CreateProfile(cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Created %s account %q (id %d)\n", profile.Role, profile.Username, profile.ID)
	return nil
}
