// Package pageboard reads 2048 boards from the formats a controller is
// likely to have at hand: an HTML snapshot of the web game, JSON rows, or
// 16 plain numbers.
package pageboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brensch/twenty48/game"
)

var (
	// ErrNoTiles is returned for HTML without any positioned tile elements.
	ErrNoTiles = errors.New("no tiles found")
	// ErrPosition is returned for a tile outside the 4x4 grid.
	ErrPosition = errors.New("tile position out of range")
)

var (
	tileValueRe    = regexp.MustCompile(`^tile-(\d+)$`)
	tilePositionRe = regexp.MustCompile(`^tile-position-(\d+)-(\d+)$`)
)

// ParseHTML extracts the board from a 2048 page. Tiles carry their value as a
// "tile-N" class and their place as "tile-position-C-R" (1-based column,
// row). When a merge leaves several tiles on one cell the largest wins.
func ParseHTML(r io.Reader) (game.Board, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return game.Board{}, fmt.Errorf("parse html: %w", err)
	}

	tiles := doc.Find(".tile-container .tile")
	if tiles.Length() == 0 {
		tiles = doc.Find(".tile")
	}

	var b game.Board
	found := 0
	var parseErr error
	tiles.EachWithBreak(func(i int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		value, col, row := 0, 0, 0
		for _, token := range strings.Fields(class) {
			if m := tileValueRe.FindStringSubmatch(token); m != nil {
				value, _ = strconv.Atoi(m[1])
			}
			if m := tilePositionRe.FindStringSubmatch(token); m != nil {
				col, _ = strconv.Atoi(m[1])
				row, _ = strconv.Atoi(m[2])
			}
		}
		if value == 0 || col == 0 || row == 0 {
			return true
		}
		if col > game.Size || row > game.Size {
			parseErr = fmt.Errorf("%w: column %d row %d", ErrPosition, col, row)
			return false
		}
		if value > b[row-1][col-1] {
			b[row-1][col-1] = value
		}
		found++
		return true
	})
	if parseErr != nil {
		return game.Board{}, parseErr
	}
	if found == 0 {
		return game.Board{}, ErrNoTiles
	}
	if err := b.Validate(); err != nil {
		return game.Board{}, err
	}
	return b, nil
}

// ParseNumbers reads 16 row-major values separated by whitespace or commas.
func ParseNumbers(s string) (game.Board, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	cells := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return game.Board{}, fmt.Errorf("parse cell %q: %w", f, err)
		}
		cells = append(cells, v)
	}
	return game.FromCells(cells)
}

// ParseJSON accepts either [[...],...] or {"board": [[...],...]}.
func ParseJSON(data []byte) (game.Board, error) {
	data = bytes.TrimSpace(data)
	var rows [][]int
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Board [][]int `json:"board"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return game.Board{}, fmt.Errorf("decode board: %w", err)
		}
		rows = wrapped.Board
	} else if err := json.Unmarshal(data, &rows); err != nil {
		return game.Board{}, fmt.Errorf("decode board: %w", err)
	}
	return game.FromRows(rows)
}

// Read detects the input format from its first non-space byte.
func Read(data []byte) (game.Board, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return game.Board{}, fmt.Errorf("empty input")
	}
	switch trimmed[0] {
	case '<':
		return ParseHTML(bytes.NewReader(trimmed))
	case '[', '{':
		return ParseJSON(trimmed)
	default:
		return ParseNumbers(string(trimmed))
	}
}

// Fetch downloads a page and parses its board.
func Fetch(ctx context.Context, client *http.Client, url string) (game.Board, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return game.Board{}, err
	}
	req.Header.Set("User-Agent", "twenty48-advise/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return game.Board{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return game.Board{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return ParseHTML(resp.Body)
}
