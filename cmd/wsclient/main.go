// wsclient is a terminal client for a TeamSync server. It keeps its identity in a state file,
// rejoins automatically on start and reads commands from stdin:
//
//	/login <name> [avatar]     join the workspace
//	/logout                    forget the identity and exit
//	/status <status>           active | away | do-not-disturb
//	/task <title> [| desc]     create a task
//	/move <task-id> <status>   todo | in-progress | done
//	/assign <task-id> [user]   assign, or clear when user is omitted
//	/board                     print the task board
//	/who                       print the users
//	/quit                      exit
//
// Any other line is sent as a chat message.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"teamsync/internal/app/client"
	"teamsync/internal/app/realtime"
	"teamsync/internal/app/workspace"
	"teamsync/internal/pkg/logx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		url       string
		stateFile string
		verbose   bool
	)

	home, _ := os.UserHomeDir()

	flagSet := pflag.NewFlagSet("wsclient", pflag.ContinueOnError)
	flagSet.StringVar(&url, "url", "ws://localhost:3001/ws", "websocket endpoint of the server")
	flagSet.StringVar(&stateFile, "state-file", filepath.Join(home, ".teamsync", "identity.json"), "where the identity is persisted")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logx.InitGlobalLogger(true)
	if !verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := &printer{out: os.Stdout}
	r := client.NewReconciler(client.NewFileStorage(stateFile), client.WithOnChange(printer.onChange))
	if err := r.Boot(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- client.Connect(ctx, url, r) }()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	quitting := false
	for {
		select {
		case err := <-done:
			if quitting || errors.Is(err, context.Canceled) {
				return nil
			}
			return err

		case line, ok := <-lines:
			if !ok {
				quitting = true
				lines = nil
				stop()
				continue
			}

			quit, err := execute(r, os.Stdout, line)
			if err != nil {
				fmt.Fprintf(os.Stdout, "! %v\n", err)
			}
			if quit {
				quitting = true
				stop()
			}
		}
	}
}

// execute runs one input line. It reports whether the client should exit.
func execute(r *client.Reconciler, out io.Writer, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	if !strings.HasPrefix(line, "/") {
		return false, r.SendMessage(line)
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	args := strings.Fields(rest)

	switch cmd {
	case "quit":
		return true, nil

	case "logout":
		return true, r.Logout()

	case "login":
		if len(args) == 0 {
			return false, errors.New("usage: /login <name> [avatar]")
		}
		avatar := ""
		if len(args) > 1 {
			avatar = args[1]
		}
		return false, r.Login(args[0], avatar)

	case "status":
		if len(args) != 1 {
			return false, errors.New("usage: /status <active|away|do-not-disturb>")
		}
		return false, r.SetStatus(workspace.UserStatus(args[0]))

	case "task":
		title, desc, _ := strings.Cut(rest, "|")
		return false, r.CreateTask(realtime.TaskCreatePayload{
			Title:       strings.TrimSpace(title),
			Description: strings.TrimSpace(desc),
		})

	case "move":
		if len(args) != 2 {
			return false, errors.New("usage: /move <task-id> <todo|in-progress|done>")
		}
		return false, r.MoveTask(args[0], workspace.TaskStatus(args[1]))

	case "assign":
		if len(args) == 0 {
			return false, errors.New("usage: /assign <task-id> [user-id]")
		}
		assignee := ""
		if len(args) > 1 {
			assignee = args[1]
		}
		return false, r.UpdateTask(realtime.TaskUpdatePayload{ID: args[0], AssigneeID: &assignee})

	case "board":
		printBoard(out, r.View())
		return false, nil

	case "who":
		for _, u := range r.View().Users {
			fmt.Fprintf(out, "  %-24s %-16s %s\n", u.ID, u.Name, u.Status)
		}
		return false, nil
	}

	return false, fmt.Errorf("unknown command /%s", cmd)
}

func printBoard(out io.Writer, v client.View) {
	for _, status := range []workspace.TaskStatus{workspace.TaskTodo, workspace.TaskInProgress, workspace.TaskDone} {
		fmt.Fprintf(out, "[%s]\n", status)
		for _, t := range v.Tasks {
			if t.Status != status {
				continue
			}
			fmt.Fprintf(out, "  %s  %s", t.ID, t.Title)
			if t.AssigneeID != "" {
				fmt.Fprintf(out, "  @%s", t.AssigneeID)
			}
			fmt.Fprintln(out)
		}
	}
}

// printer reports state changes and new chat messages.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	state    client.State
	seen     int
	lastCode int
}

func (p *printer) onChange(v client.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v.State != p.state {
		p.state = v.State
		fmt.Fprintf(p.out, "* %s\n", v.State)
	}

	if len(v.Messages) < p.seen {
		p.seen = 0
	}
	names := make(map[string]string, len(v.Users))
	for _, u := range v.Users {
		names[u.ID] = u.Name
	}
	for _, m := range v.Messages[p.seen:] {
		fmt.Fprintf(p.out, "%s  %s: %s\n", m.CreatedAt.Local().Format("15:04"), names[m.UserID], m.Text)
	}
	p.seen = len(v.Messages)

	if v.LastError != nil && v.LastError.Code != p.lastCode {
		p.lastCode = v.LastError.Code
		fmt.Fprintf(p.out, "! %s\n", v.LastError.Message)
	}
}
