// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package notification delivers contest results to participating authors.
//
// Delivery is recorded per (contest, author) in the Badger ledger so each
// author gets at most one result email per contest, and so undelivered
// messages survive a restart and are retried by the scheduler.
package notification

import (
	"fmt"
	"strings"

	"github.com/tomtom215/cityofrecipes/internal/models"
)

// Message kinds.
const (
	KindWinner      = "winner"
	KindNoWinner    = "no_winner"
	KindParticipant = "participant"
)

// Message is one plain-text email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	Kind    string
}

// Composer builds result messages.
type Composer struct {
	siteName string
}

// NewComposer creates a Composer signing messages as siteName.
func NewComposer(siteName string) *Composer {
	if siteName == "" {
		siteName = "City of Recipes"
	}
	return &Composer{siteName: siteName}
}

// Compose picks the message kind for author: winner if any of their entries
// placed, no-winner if nobody placed, participant otherwise.
func (c *Composer) Compose(contest *models.Contest, winners []models.RecipeSnapshot, author *models.User) Message {
	msg := Message{To: author.Email, ToName: author.Username}

	for place, w := range winners {
		if w.AuthorID == author.ID {
			msg.Kind = KindWinner
			msg.Subject = fmt.Sprintf("Congratulations! Your recipe won %q", contest.Name)
			msg.Body = c.body(author, fmt.Sprintf(
				"Your recipe %q took place %d in the contest %q with %d points.\n\n%s",
				w.Name, place+1, contest.Name, w.ContestScore, standingsText(winners)))
			return msg
		}
	}

	if len(winners) == 0 {
		msg.Kind = KindNoWinner
		msg.Subject = fmt.Sprintf("The contest %q has ended", contest.Name)
		msg.Body = c.body(author, fmt.Sprintf(
			"The contest %q has ended. No recipe reached the rating required to win this time.\n\nThank you for taking part.",
			contest.Name))
		return msg
	}

	msg.Kind = KindParticipant
	msg.Subject = fmt.Sprintf("Results of the contest %q", contest.Name)
	msg.Body = c.body(author, fmt.Sprintf(
		"The contest %q has ended. Thank you for taking part.\n\n%s", contest.Name, standingsText(winners)))
	return msg
}

func (c *Composer) body(author *models.User, text string) string {
	var b strings.Builder
	name := author.Username
	if name == "" {
		name = "cook"
	}
	fmt.Fprintf(&b, "Hello, %s!\n\n", name)
	b.WriteString(text)
	fmt.Fprintf(&b, "\n\n%s\n", c.siteName)
	return b.String()
}

func standingsText(winners []models.RecipeSnapshot) string {
	var b strings.Builder
	b.WriteString("Winners:\n")
	for i, w := range winners {
		fmt.Fprintf(&b, "  %d. %s (%d points)\n", i+1, w.Name, w.ContestScore)
	}
	return strings.TrimRight(b.String(), "\n")
}
