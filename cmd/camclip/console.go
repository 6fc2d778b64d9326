package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"camclip/internal/domain"
	"camclip/internal/usecase"
)

// recorderControls is the part of the session the console drives.
type recorderControls interface {
	Start() error
	Stop(ctx context.Context) error
	Play() error
	Submit() (domain.SubmitResult, error)
	Delete() error
	Abort() error
	Status() domain.Status
}

type console struct {
	session recorderControls
	term    *terminal
}

func newConsole(session recorderControls, term *terminal) *console {
	return &console{session: session, term: term}
}

// run dispatches one command per input line until quit, EOF or ctx ends.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (c *console) handle(ctx context.Context, line string) bool {
	var err error
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return false
	case "r", "record", "start":
		err = c.session.Start()
	case "s", "stop":
		err = c.session.Stop(ctx)
	case "p", "play":
		err = c.session.Play()
	case "u", "submit":
		_, err = c.session.Submit()
	case "d", "delete":
		err = c.session.Delete()
	case "a", "abort":
		err = c.session.Abort()
	case "i", "status":
		c.term.printStatus(c.session.Status())
	case "h", "help", "?":
		c.term.printHelp()
	case "q", "quit", "exit":
		return true
	default:
		c.term.printf("unknown command %q, type h for help\n", strings.TrimSpace(line))
	}

	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrInvalidTransition):
		c.term.printf("not available: %v\n", err)
	case errors.Is(err, usecase.ErrNothingToPlay):
		c.term.printf("nothing recorded yet\n")
	default:
		// Capture, encoder and finalize failures are already reported as
		// session errors.
	}
	return false
}
