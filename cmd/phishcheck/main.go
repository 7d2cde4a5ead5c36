// Command phishcheck assesses a login page URL from the terminal: it
// prompts for the password that would be submitted (never echoed), runs
// the full signal pipeline, and prints the verdict.
//
// Exit codes: 0 the submission would be allowed, 1 it would be blocked,
// 2 unexpected error.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Hussein-Mazeh/PhishGuard/intercept"
	"github.com/Hussein-Mazeh/PhishGuard/internal/config"
	"github.com/Hussein-Mazeh/PhishGuard/page"
	"github.com/Hussein-Mazeh/PhishGuard/policy"
	"github.com/Hussein-Mazeh/PhishGuard/signal"
)

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	if err := run(os.Args[1:]); err != nil {
		handleError(err)
	}
}

func handleError(err error) {
	if err == nil {
		return
	}

	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, uerr.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
	os.Exit(2)
}

func run(args []string) error {
	fs := flag.NewFlagSet("phishcheck", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	noBreach := fs.Bool("no-breach", false, "skip the online breach lookup")
	sensitivity := fs.String("sensitivity", config.SensitivityMedium, "low, medium, or high")
	if err := fs.Parse(args); err != nil {
		return userError{msg: "usage: phishcheck [-no-breach] [-sensitivity low|medium|high] <url>"}
	}
	if fs.NArg() != 1 {
		return userError{msg: "usage: phishcheck [-no-breach] [-sensitivity low|medium|high] <url>"}
	}
	rawURL := fs.Arg(0)

	password, err := readPassword("Password that would be submitted: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return userError{msg: "a password is required; the breach and strength checks run against it"}
	}

	settings := config.Default()
	settings.EnableBreachCheck = !*noBreach
	settings.Sensitivity = *sensitivity

	log := &policy.MemoryLog{}
	it, err := intercept.New(settings, log)
	if err != nil {
		return err
	}

	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{URL: rawURL},
		Form: syntheticLoginForm(password),
	})
	if err != nil {
		return err
	}
	if !res.Applicable {
		return userError{msg: "could not build a login submission from that input"}
	}

	printAssessment(res)

	switch res.Decision.State() {
	case policy.StateAllowed:
		fmt.Println("verdict: ALLOW")
		return nil
	case policy.StateBlocked:
		fmt.Println("verdict: BLOCK")
		return userError{msg: "this submission would be blocked"}
	default:
		return promptChoice(res.Decision)
	}
}

// syntheticLoginForm stands in for the real page form: the CLI has no DOM
// to snapshot, so form structure scores neutral and the verdict is driven
// by domain, transport, and breach signals.
func syntheticLoginForm(password string) page.Form {
	return page.Form{
		Identity: "phishcheck",
		Fields: []page.Field{
			{Tag: "input", Type: "email", Name: "email", Value: "user@example.com"},
			{Tag: "input", Type: "password", Name: "password", Value: password},
		},
	}
}

func printAssessment(res *intercept.Result) {
	a := res.Assessment
	fmt.Printf("risk score: %.1f (%s)\n", a.Overall, a.Level)

	for _, kind := range []signal.Kind{
		signal.KindDomain, signal.KindBreach, signal.KindTransport,
		signal.KindContent, signal.KindForm, signal.KindReputation,
	} {
		if sr, ok := a.Result(kind); ok {
			fmt.Printf("  %-10s %5.1f\n", sr.Kind, sr.Score)
		}
	}

	findings := a.Findings()
	if len(findings) > 0 {
		fmt.Println("findings:")
		for _, finding := range findings {
			fmt.Printf("  - %s\n", finding)
		}
	}
}

// promptChoice drives the AwaitingUserChoice state interactively.
func promptChoice(decision *policy.Decision) error {
	fmt.Print("medium risk - proceed anyway? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read choice: %w", err)
	}

	choice := policy.ChoiceCancel
	if s := strings.ToLower(strings.TrimSpace(answer)); s == "y" || s == "yes" {
		choice = policy.ChoiceProceed
	}
	if err := decision.Resolve(choice); err != nil {
		return err
	}

	if decision.State() == policy.StateAllowed {
		fmt.Println("verdict: ALLOW (user override)")
		return nil
	}
	fmt.Println("verdict: BLOCK (user cancelled)")
	return userError{msg: "this submission would be blocked"}
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	// Piped input (scripts, tests): read one line.
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
