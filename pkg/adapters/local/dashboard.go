package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/tabula/pkg/domain"
)

// board is the decoded dashboard snapshot.
type board struct {
	domain.DashboardView
}

func newBoard(title string) *board {
	return &board{domain.DashboardView{Title: title, Pages: []domain.PageView{}}}
}

func decodeBoard(s string) (*board, error) {
	if s == "" {
		return nil, errors.New("empty dashboard snapshot")
	}
	var b board
	if err := json.Unmarshal([]byte(s), &b.DashboardView); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	if b.Pages == nil {
		b.Pages = []domain.PageView{}
	}
	return &b, nil
}

func (b *board) snapshot() (domain.Snapshot, error) {
	data, err := json.Marshal(b.DashboardView)
	if err != nil {
		return "", fmt.Errorf("encode dashboard: %w", err)
	}
	return domain.Snapshot(data), nil
}

func (b *board) addPage(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("page name is empty")
	}
	if _, ok := b.Page(name); ok {
		return fmt.Errorf("page %q already exists", name)
	}
	b.Pages = append(b.Pages, domain.PageView{Name: name, Blocks: []domain.Block{}})
	return nil
}

// add appends a block to an existing page.
func (b *board) add(page string, block domain.Block) error {
	for i := range b.Pages {
		if b.Pages[i].Name == page {
			b.Pages[i].Blocks = append(b.Pages[i].Blocks, block)
			return nil
		}
	}
	return fmt.Errorf("page %q does not exist, add it first", page)
}

// headingSize parses a size in 1..10; anything else falls back to the default.
func headingSize(arg string) int {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > 10 {
		return domain.DefaultHeadingSize
	}
	return n
}

// headingClass maps a heading size to its text class; 1 is the largest.
func headingClass(size int) string {
	classes := [...]string{
		"text-6xl", "text-5xl", "text-4xl", "text-3xl", "text-2xl",
		"text-xl", "text-lg", "text-md", "text-sm", "text-xs",
	}
	if size < 1 || size > len(classes) {
		size = domain.DefaultHeadingSize
	}
	return classes[size-1]
}
