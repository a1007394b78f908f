// Package textview draws an app.Page for the terminal.
package textview

import (
	"fmt"
	"io"
	"strings"

	"pocketchef/internal/app"
	"pocketchef/internal/models"
	"pocketchef/internal/recipes"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#c0582b")
	muted  = lipgloss.Color("#7a6f66")

	successColor = lipgloss.Color("#8BC34A")
	errorColor   = lipgloss.Color("#e53935")
	infoColor    = lipgloss.Color("#2196F3")
)

type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Muted  lipgloss.Style
	Notice map[app.NoticeKind]lipgloss.Style
	Box    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		Header: lipgloss.NewStyle().Bold(true).Underline(true),
		Cell:   lipgloss.NewStyle().PaddingRight(2),
		Muted:  lipgloss.NewStyle().Foreground(muted),
		Notice: map[app.NoticeKind]lipgloss.Style{
			app.NoticeSuccess: lipgloss.NewStyle().Foreground(successColor),
			app.NoticeError:   lipgloss.NewStyle().Foreground(errorColor),
			app.NoticeInfo:    lipgloss.NewStyle().Foreground(infoColor),
		},
		Box: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
	}
}

// Render writes the page: the notice, the recipe table of the current view
// and, when a recipe is open, its detail.
func Render(w io.Writer, p app.Page) error {
	return DefaultStyles().Render(w, p)
}

func (s Styles) Render(w io.Writer, p app.Page) error {
	var sb strings.Builder

	heading := "Pocket Chef: " + viewLabel(p)
	if p.LoggedIn {
		heading += s.Muted.Render("  (" + p.User.Username + ")")
	}
	sb.WriteString(s.Title.Render(heading))
	sb.WriteString("\n")

	if p.Notice != nil {
		sb.WriteString(s.Notice[p.Notice.Kind].Render(p.Notice.Message))
		sb.WriteString("\n")
	}

	switch {
	case p.View == recipes.ViewAbout:
		sb.WriteString(s.about(p.QuickPrep))
	case p.Cards == nil:
	case p.FetchFailed:
		sb.WriteString(s.Notice[app.NoticeError].Render("Could not reach the recipe server."))
		sb.WriteString("\n")
	case p.Empty:
		sb.WriteString(s.Muted.Render("No recipes to show."))
		sb.WriteString("\n")
	default:
		sb.WriteString(s.table(p.Cards))
	}

	if p.Detail != nil && p.Modal == app.ModalRecipe {
		sb.WriteString("\n")
		sb.WriteString(s.detail(*p.Detail, p.Comments, p.CommentsFailed))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (s Styles) about(quickPrep int) string {
	text := "Pocket Chef collects the recipes you cook and shares them with friends.\n" +
		fmt.Sprintf("Quick recipes take %d minutes or less. ", quickPrep) +
		"Log in to add recipes, like, comment and keep favorites on this device."
	return s.Box.Render(text) + "\n"
}

// RenderComments writes a comment list on its own.
func RenderComments(w io.Writer, comments []models.Comment, failed bool) error {
	_, err := io.WriteString(w, DefaultStyles().comments(comments, failed))
	return err
}

func (s Styles) table(cards []app.Card) string {
	headers := []string{"ID", "Title", "Category", "Prep", "Likes", "Author", ""}
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		var marks []string
		if c.Favorited {
			marks = append(marks, "★")
		}
		if c.Liked {
			marks = append(marks, "♥")
		}
		rows = append(rows, []string{
			fmt.Sprint(c.ID),
			c.Title,
			c.Category,
			fmt.Sprintf("%d min", c.PrepTime),
			fmt.Sprint(c.Likes),
			c.Author,
			strings.Join(marks, " "),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := lipgloss.Width(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var sb strings.Builder
	for i, h := range headers {
		sb.WriteString(s.Cell.Width(widths[i] + 2).Render(s.Header.Render(h)))
	}
	sb.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			sb.WriteString(s.Cell.Width(widths[i] + 2).Render(cell))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s Styles) detail(c app.Card, comments []models.Comment, failed bool) string {
	var sb strings.Builder
	sb.WriteString(s.Title.Render(c.Title))
	sb.WriteString("\n")
	sb.WriteString(s.Muted.Render(fmt.Sprintf("%s, %d min, %s, by %s, rated %.1f", c.Category, c.PrepTime, c.Difficulty, c.Author, c.Rating)))
	sb.WriteString("\n")
	sb.WriteString(s.Muted.Render("Image: " + c.ImageURL))
	sb.WriteString("\n\n")

	sb.WriteString(s.Header.Render("Ingredients"))
	sb.WriteString("\n")
	for _, ingredient := range c.Ingredients {
		sb.WriteString("  - " + ingredient + "\n")
	}

	sb.WriteString(s.Header.Render("Steps"))
	sb.WriteString("\n")
	for i, step := range c.Steps {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
	}

	sb.WriteString(s.comments(comments, failed))
	return s.Box.Render(strings.TrimRight(sb.String(), "\n"))
}

func (s Styles) comments(comments []models.Comment, failed bool) string {
	var sb strings.Builder
	sb.WriteString(s.Header.Render("Comments"))
	sb.WriteString("\n")
	switch {
	case failed:
		sb.WriteString(s.Muted.Render("  Comments could not be loaded.") + "\n")
	case len(comments) == 0:
		sb.WriteString(s.Muted.Render("  No comments yet.") + "\n")
	}
	for _, c := range comments {
		sb.WriteString("  " + lipgloss.NewStyle().Bold(true).Render(c.User) + ": " + c.Content + "\n")
	}
	return sb.String()
}

func viewLabel(p app.Page) string {
	for _, item := range p.Nav {
		if item.Active {
			if p.Category != "" {
				return item.Label + " / " + p.Category
			}
			return item.Label
		}
	}
	return "Home"
}
