// Command gamectl inspects finished games and mints test tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/dkeye/Gambit/internal/auth"
	"github.com/dkeye/Gambit/internal/config"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/dkeye/Gambit/internal/store"
)

const usage = `usage:
  gamectl show <roomId>          print a finished game
  gamectl games <userId> [limit] list a user's recent games
  gamectl stats <userId>         print a user's win/loss/draw totals
  gamectl token <userId> [name]  sign a token for a user`

func main() {
	if len(os.Args) < 3 {
		pterm.Println(usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cmd == "token" {
		return issueToken(cfg, args)
	}

	games, err := store.Open(store.Config{
		Driver:   cfg.Store.Driver,
		DSN:      cfg.Store.DSN,
		RedisURL: cfg.Store.RedisURL,
		TTL:      cfg.Store.TTL,
		LogLevel: "silent",
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer games.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cmd {
	case "show":
		rec, err := games.Get(ctx, domain.RoomID(args[0]))
		if err != nil {
			return err
		}
		showRecord(rec)
	case "games":
		limit := 0
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("bad limit %q", args[1])
			}
		}
		recs, err := games.ListByUser(ctx, domain.UserID(args[0]), limit)
		if err != nil {
			return err
		}
		return listRecords(domain.UserID(args[0]), recs)
	case "stats":
		stats, err := games.UserStats(ctx, domain.UserID(args[0]))
		if err != nil {
			return err
		}
		pterm.Info.Printfln("%s: %d games, %d wins, %d losses, %d draws",
			stats.UserID, stats.TotalGames, stats.Wins, stats.Losses, stats.Draws)
	default:
		pterm.Println(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func showRecord(rec domain.GameRecord) {
	winner := "none"
	if rec.WinnerID != nil {
		winner = string(*rec.WinnerID)
	}
	timer := "untimed"
	if rec.Rules.Timer {
		timer = fmt.Sprintf("%s + %s", rec.Rules.InitialTime(), rec.Rules.Increment())
	}
	info := pterm.Sprintfln("White: %s", pterm.LightWhite(rec.WhiteID)) +
		pterm.Sprintfln("Black: %s", pterm.Gray(rec.BlackID)) +
		pterm.Sprintfln("Mode: %s (%s)", orDash(rec.GameMode), timer) +
		pterm.Sprintfln("Result: %s, winner %s", pterm.LightYellow(rec.Resolution), winner) +
		pterm.Sprintfln("Played: %s to %s", rec.CreatedAt.Format(time.RFC3339), rec.FinishedAt.Format(time.RFC3339))
	pterm.DefaultBox.WithTitle(pterm.LightGreen("|"+string(rec.RoomID)+"|")).WithTitleTopCenter().
		WithHorizontalPadding(4).Println(info)

	moves := make([]string, len(rec.Moves))
	for i, m := range rec.Moves {
		moves[i] = m.UCI()
	}
	pterm.Info.Printfln("Moves (%d): %s", len(moves), strings.Join(moves, " "))
	if rec.PGN != "" {
		pterm.Println()
		pterm.Println(rec.PGN)
	}
}

func listRecords(user domain.UserID, recs []domain.GameRecord) error {
	if len(recs) == 0 {
		pterm.Warning.Printfln("no games for %s", user)
		return nil
	}
	data := pterm.TableData{{"Room", "White", "Black", "Result", "Winner", "Moves", "Finished"}}
	for _, r := range recs {
		winner := "-"
		if r.WinnerID != nil {
			winner = string(*r.WinnerID)
		}
		data = append(data, []string{
			string(r.RoomID), string(r.WhiteID), string(r.BlackID), string(r.Resolution),
			winner, strconv.Itoa(len(r.Moves)), r.FinishedAt.Format(time.DateTime),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func issueToken(cfg *config.Config, args []string) error {
	name := args[0]
	if len(args) > 1 {
		name = args[1]
	}
	user, err := domain.NewUser(domain.UserID(args[0]), name, "")
	if err != nil {
		return err
	}
	token, err := auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour).Issue(*user)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("token for %s (valid 24h)", user.ID)
	pterm.Println(token)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
