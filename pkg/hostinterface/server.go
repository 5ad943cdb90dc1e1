package hostinterface

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rcsfx/extension/internal/dispatcher"
)

// Server answers host command lines through a dispatcher.
type Server struct {
	d       *dispatcher.Dispatcher
	version string
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a server routing commands to d.
func New(d *dispatcher.Dispatcher, opts ...Option) *Server {
	s := &Server{
		d:       d,
		version: "No version set",
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Call handles one request line and returns the reply line without newline.
func (s *Server) Call(line string) string {
	line = strings.TrimRight(line, "\r\n")
	command, args := split(line)

	switch {
	case command == ":TIMESTAMP:":
		return formatResponse(strconv.FormatInt(s.now().UTC().UnixNano(), 10), nil)
	case command == ":VERSION:" && !s.hasHandler(command):
		return formatResponse(s.version, nil)
	case !s.hasHandler(command):
		return formatResponse(nil, fmt.Errorf("%s: no handler registered", command))
	}

	result, err := s.d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: s.now(),
	})
	return formatResponse(result, err)
}

// Serve reads request lines from r and writes one reply line per request to w
// until r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	bw := bufio.NewWriter(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			reply := s.Call(line)
			s.logger.Debug("host call", "request", line, "reply", reply)
			if _, err := bw.WriteString(reply + "\n"); err != nil {
				return fmt.Errorf("writing reply: %w", err)
			}
			if err := bw.Flush(); err != nil {
				return fmt.Errorf("writing reply: %w", err)
			}
		}
	}
}

func (s *Server) hasHandler(command string) bool {
	return s.d != nil && s.d.HasHandler(command)
}

// split separates "CMD|a|b" into the command and its arguments, stripping
// the host's quoting from each argument.
func split(line string) (string, []string) {
	parts := strings.Split(line, Separator)
	args := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		args = append(args, strings.TrimSpace(p))
	}
	return strings.TrimSpace(parts[0]), args
}

// formatResponse renders a handler result as a JSON reply array.
func formatResponse(result any, err error) string {
	if err != nil {
		msg, _ := json.Marshal(err.Error())
		return fmt.Sprintf(`["error", %s]`, msg)
	}
	if result == nil {
		return `["ok"]`
	}
	data, merr := json.Marshal(result)
	if merr != nil {
		msg, _ := json.Marshal(errors.Join(errors.New("unencodable result"), merr).Error())
		return fmt.Sprintf(`["error", %s]`, msg)
	}
	return fmt.Sprintf(`["ok", %s]`, data)
}
