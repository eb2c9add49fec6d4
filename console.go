package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/turnserver/message"
	"github.com/wfunc/turnserver/room"
	"github.com/wfunc/turnserver/session"
)

const consoleHelp = `commands:
  join <name>   seat a player at the end of the turn order
  leave <name>  remove a player
  end <name>    end <name>'s turn
  skip          pass the turn on regardless of who holds it
  who           show the table
  help          show this help
  quit          leave the console`

var errUsage = errors.New("usage")

// syncWriter serializes writes from the console and the room loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

// seatSender is the session.Sender of a console player. It only reports the
// turn reaching its own player.
type seatSender struct {
	name string
	out  *syncWriter
}

func (s *seatSender) Send(msgID uint16, data []byte) error {
	if msgID != message.MsgTypeYourTurn {
		return nil
	}
	var tc message.TurnChanged
	if err := json.Unmarshal(data, &tc); err != nil {
		return err
	}
	s.out.printf("> %s, your turn (#%d, %s)", s.name, tc.Turn, tc.Reason)
	return nil
}

func (s *seatSender) Close() error { return nil }

// console drives one room from text commands, one player seat per name.
type console struct {
	table    *room.Room
	sessions *session.Manager
	out      *syncWriter
}

func newConsole(table *room.Room, sessions *session.Manager, w io.Writer) *console {
	return &console{
		table:    table,
		sessions: sessions,
		out:      &syncWriter{w: w},
	}
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.out.printf("%s", consoleHelp)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			quit, err := c.exec(line)
			if err != nil {
				c.out.printf("error: %v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// exec runs a single command and ticks the room once.
func (c *console) exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	defer c.table.Update()

	arg := func() (string, error) {
		if len(fields) != 2 {
			return "", fmt.Errorf("%w: %s <name>", errUsage, fields[0])
		}
		return fields[1], nil
	}

	switch fields[0] {
	case "join":
		name, err := arg()
		if err != nil {
			return false, err
		}
		s := session.NewSession(uuid.New().String(), name, &seatSender{name: name, out: c.out})
		// Registered first so the player hears a turn handed out on join.
		c.sessions.Add(s)
		if err := c.table.AddPlayer(s); err != nil {
			c.sessions.Remove(s.ID)
			return false, err
		}
		c.out.printf("%s sits down (%s)", name, s.Color)
	case "leave":
		name, err := arg()
		if err != nil {
			return false, err
		}
		s, ok := c.table.GetPlayer(name)
		if err := c.table.RemovePlayer(name); err != nil {
			return false, err
		}
		if ok {
			c.sessions.Remove(s.ID)
			s.Close()
		}
		c.out.printf("%s leaves", name)
	case "end":
		name, err := arg()
		if err != nil {
			return false, err
		}
		action, _ := json.Marshal(message.Action{Type: message.ActionEndTurn})
		return false, c.table.HandleAction(name, action)
	case "skip":
		if _, err := c.table.AdvanceTurn(); err != nil {
			return false, err
		}
	case "who":
		c.printTable()
	case "help":
		c.out.printf("%s", consoleHelp)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return false, nil
}

func (c *console) printTable() {
	snap := c.table.Snapshot()
	if len(snap.Players) == 0 {
		c.out.printf("%s [%s]: empty", snap.Name, snap.Status)
		return
	}
	names := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		if p.Name == snap.Current {
			names = append(names, "*"+p.Name)
		} else {
			names = append(names, p.Name)
		}
	}
	c.out.printf("%s [%s] turn %d: %s (host %s)", snap.Name, snap.Status, snap.Turn, strings.Join(names, ", "), snap.Host)
}
