package sensor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// DefaultSerialStaleAfter is how old the last line may be before ReadRaw
// reports the bridge as silent.
const DefaultSerialStaleAfter = 10 * time.Second

// SerialSoil reads a microcontroller that samples the soil probe with its
// own ADC and prints one reading per line, either a bare integer ("1834")
// or key=value ("soil=1834"). The latest value is cached; ReadRaw never
// blocks on the port.
type SerialSoil struct {
	conn       io.ReadCloser
	logger     zerolog.Logger
	staleAfter time.Duration
	now        func() time.Time

	mu     sync.Mutex
	raw    int
	seenAt time.Time
	have   bool
	err    error

	done chan struct{}
}

// OpenSerialSoil opens the serial port and starts reading lines.
func OpenSerialSoil(port string, baudRate int, logger zerolog.Logger) (*SerialSoil, error) {
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return NewSerialSoil(conn, logger), nil
}

// NewSerialSoil starts reading lines from conn.
func NewSerialSoil(conn io.ReadCloser, logger zerolog.Logger) *SerialSoil {
	return newSerialSoil(conn, logger, time.Now)
}

func newSerialSoil(conn io.ReadCloser, logger zerolog.Logger, now func() time.Time) *SerialSoil {
	s := &SerialSoil{
		conn:       conn,
		logger:     logger.With().Str("component", "serial-soil").Logger(),
		staleAfter: DefaultSerialStaleAfter,
		now:        now,
		done:       make(chan struct{}),
	}
	go s.readLines()
	return s
}

func (s *SerialSoil) readLines() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		raw, err := parseSoilLine(line)
		if err != nil {
			s.logger.Debug().Str("line", line).Err(err).Msg("Ignoring unparseable line")
			continue
		}

		s.mu.Lock()
		s.raw = raw
		s.seenAt = s.now()
		s.have = true
		s.mu.Unlock()
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.logger.Warn().Err(err).Msg("Serial reader stopped")

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// parseSoilLine accepts "1834", "soil=1834" or "soil: 1834".
func parseSoilLine(line string) (int, error) {
	if i := strings.LastIndexAny(line, "=:"); i >= 0 {
		line = strings.TrimSpace(line[i+1:])
	}
	return strconv.Atoi(line)
}

// ReadRaw returns the most recent reading.
func (s *SerialSoil) ReadRaw() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, fmt.Errorf("serial soil: %w", s.err)
	}
	if !s.have {
		return 0, ErrNoSample
	}
	if age := s.now().Sub(s.seenAt); age > s.staleAfter {
		return 0, fmt.Errorf("serial soil: last reading is %v old", age.Truncate(time.Second))
	}
	return s.raw, nil
}

// Close closes the port and waits for the reader goroutine to exit.
func (s *SerialSoil) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}
