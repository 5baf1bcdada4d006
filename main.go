package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"ragchat/internal/api"
	"ragchat/internal/auth"
	"ragchat/internal/chat"
	"ragchat/internal/config"
	"ragchat/internal/store"
	"ragchat/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	client := api.New(cfg.ServerURL, cfg.Timeout)

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		if tokenPath, err = auth.DefaultPath(); err != nil {
			return err
		}
	}
	tokens := auth.NewStore(tokenPath)

	ctx := context.Background()

	switch {
	case cfg.Login:
		return runLogin(ctx, client, tokens)
	case cfg.Register:
		return runRegister(ctx, client, tokens)
	case cfg.Analyze != "":
		return runAnalyze(ctx, cfg, client, tokens)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	session, transcript, err := resumeSession(cfg, st)
	if err != nil {
		return err
	}

	return ui.Run(cfg, client, tokens, st, session, transcript)
}

// resumeSession picks up the most recent session unless -new-session
// asked for a fresh one, and lets -index retarget whichever session is
// active.
func resumeSession(cfg config.AppConfig, st *store.Store) (store.Session, []chat.Message, error) {
	var session store.Session

	if !cfg.NewSession {
		latest, ok, err := st.LatestSession()
		if err != nil {
			return store.Session{}, nil, err
		}
		if ok {
			session = latest
		}
	}

	if session.ID == "" {
		created, err := st.CreateSession(cfg.IndexName)
		if err != nil {
			return store.Session{}, nil, err
		}
		return created, nil, nil
	}

	if cfg.IndexName != "" && cfg.IndexName != session.IndexName {
		if err := st.SetIndexName(session.ID, cfg.IndexName); err != nil {
			return store.Session{}, nil, err
		}
		session.IndexName = cfg.IndexName
	}

	transcript, err := st.LoadTranscript(session.ID)
	if err != nil {
		return store.Session{}, nil, err
	}
	return session, transcript, nil
}

func runLogin(ctx context.Context, client *api.Client, tokens *auth.Store) error {
	in := bufio.NewReader(os.Stdin)

	identifier, err := prompt(in, "Username or email: ")
	if err != nil {
		return err
	}
	password, err := prompt(in, "Password: ")
	if err != nil {
		return err
	}

	resp, err := client.Login(ctx, identifier, password)
	if err != nil {
		return err
	}
	if err := tokens.Write(resp.Token); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s. Token stored.\n", resp.User.Username)
	return nil
}

func runRegister(ctx context.Context, client *api.Client, tokens *auth.Store) error {
	in := bufio.NewReader(os.Stdin)

	username, err := prompt(in, "Username: ")
	if err != nil {
		return err
	}
	email, err := prompt(in, "Email: ")
	if err != nil {
		return err
	}

	message, err := client.Register(ctx, username, email)
	if err != nil {
		return err
	}
	if message != "" {
		fmt.Println(message)
	} else {
		fmt.Println("Verification code sent. Check your inbox.")
	}

	otp, err := prompt(in, "Verification code: ")
	if err != nil {
		return err
	}
	password, err := prompt(in, "Choose a password: ")
	if err != nil {
		return err
	}

	resp, err := client.VerifyOTP(ctx, email, otp, password)
	if err != nil {
		return err
	}
	if resp.Token == "" {
		fmt.Println("Account verified. Run with -login to get a token.")
		return nil
	}
	if err := tokens.Write(resp.Token); err != nil {
		return err
	}
	fmt.Printf("Registered as %s. Token stored.\n", resp.User.Username)
	return nil
}

func runAnalyze(ctx context.Context, cfg config.AppConfig, client *api.Client, tokens *auth.Store) error {
	urls := cfg.AnalyzeURLs()
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given to -analyze")
	}

	token, _ := tokens.Read()
	fmt.Printf("Analyzing %d URL(s)...\n", len(urls))
	resp, err := client.Analyze(ctx, token, urls)
	if err != nil {
		return err
	}

	fmt.Println("Index ready:", resp.IndexName)
	if summary := strings.TrimSpace(resp.Summary); summary != "" {
		fmt.Println()
		fmt.Println(summary)
	}
	fmt.Printf("\nChat against it with: ragchat -index %s\n", resp.IndexName)
	return nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("empty input")
	}
	return line, nil
}
