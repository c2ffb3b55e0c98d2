package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/selfplay"
)

const recentGames = 10

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	cellStyle   = lipgloss.NewStyle().Width(6).Align(lipgloss.Center).Border(lipgloss.RoundedBorder())
	// tileColors is indexed by log2 of the tile; larger tiles reuse the last color.
	tileColors = []string{"238", "230", "229", "215", "209", "203", "196", "227", "226", "220", "214", "208", "202"}
)

type TickMsg time.Time

type runDoneMsg struct{ err error }

type model struct {
	counters  *selfplay.Counters
	updates   <-chan selfplay.Update
	workers   int
	startTime time.Time

	games      int64
	moves      int64
	bestScore  int
	bestTile   int
	lastBoard  game.Board
	haveBoard  bool
	recent     []string
	done       bool
	runErr     error
	tileCounts map[int]int
}

func initialModel(counters *selfplay.Counters, updates <-chan selfplay.Update, workers int) model {
	return model{
		counters:   counters,
		updates:    updates,
		workers:    workers,
		startTime:  time.Now(),
		tileCounts: map[int]int{},
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForUpdate yields the next finished game, or nil once updates is closed.
func waitForUpdate(updates <-chan selfplay.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return nil
		}
		return u
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.games = m.counters.Games.Load()
		m.moves = m.counters.Moves.Load()
		return m, tickCmd()
	case selfplay.Update:
		r := msg.Result
		if r.Score > m.bestScore {
			m.bestScore = r.Score
		}
		if r.MaxTile > m.bestTile {
			m.bestTile = r.MaxTile
		}
		m.tileCounts[r.MaxTile]++
		m.lastBoard = r.Final
		m.haveBoard = true
		line := fmt.Sprintf("worker %d: %d moves, score %d, max tile %d", msg.WorkerID, r.Moves, r.Score, r.MaxTile)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > recentGames {
			m.recent = m.recent[:recentGames]
		}
		return m, waitForUpdate(m.updates)
	case runDoneMsg:
		m.done = true
		m.runErr = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	elapsed := time.Since(m.startTime)
	movesPerSec := 0.0
	gamesPerMin := 0.0
	if elapsed >= time.Second {
		movesPerSec = float64(m.moves) / elapsed.Seconds()
		gamesPerMin = float64(m.games) / elapsed.Minutes()
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("twenty48 self-play · %d workers", m.workers)))
	sb.WriteString("\n\n")
	stat := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	stat("Games", strconv.FormatInt(m.games, 10))
	stat("Moves", strconv.FormatInt(m.moves, 10))
	stat("Duration", elapsed.Round(time.Second).String())
	stat("Games/min", fmt.Sprintf("%.2f", gamesPerMin))
	stat("Moves/sec", fmt.Sprintf("%.1f", movesPerSec))
	stat("Best score", strconv.Itoa(m.bestScore))
	stat("Best tile", strconv.Itoa(m.bestTile))
	if len(m.tileCounts) > 0 {
		stat("Max tiles", tileHistogram(m.tileCounts))
	}

	if m.haveBoard {
		sb.WriteString("\nLast final board:\n")
		sb.WriteString(renderBoard(m.lastBoard))
		sb.WriteString("\n")
	}

	sb.WriteString("\nRecent games:\n")
	for _, g := range m.recent {
		sb.WriteString(g)
		sb.WriteString("\n")
	}
	if m.done {
		sb.WriteString("\nRun complete.\n")
	} else {
		sb.WriteString("\nPress q to quit.\n")
	}
	return sb.String()
}

func tileHistogram(counts map[int]int) string {
	parts := make([]string, 0, len(counts))
	for tile := game.MaxTile; tile >= 2; tile /= 2 {
		if n := counts[tile]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d×%d", tile, n))
		}
	}
	return strings.Join(parts, "  ")
}

func renderBoard(b game.Board) string {
	rows := make([]string, game.Size)
	for r := 0; r < game.Size; r++ {
		cells := make([]string, game.Size)
		for c := 0; c < game.Size; c++ {
			v := b[r][c]
			label := "·"
			if v > 0 {
				label = strconv.Itoa(v)
			}
			color := tileColors[0]
			if v > 0 {
				idx := game.Log2(v)
				if idx >= len(tileColors) {
					idx = len(tileColors) - 1
				}
				color = tileColors[idx]
			}
			cells[c] = cellStyle.BorderForeground(lipgloss.Color(color)).Foreground(lipgloss.Color(color)).Render(label)
		}
		rows[r] = lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
