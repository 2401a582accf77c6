package cli

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/hl-pug-backend/internal/engine"
	"github.com/DoyleJ11/hl-pug-backend/internal/roster"
)

var (
	rosterPath string
	seed       uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an offline draft over a roster file",
	Long: `Sign up every player in a YAML roster, elect captains, let both captains
draft greedily and print the resulting teams. Players left over are listed
at the end.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&rosterPath, "roster", "r", "", "YAML roster file")
	simulateCmd.Flags().Uint64Var(&seed, "seed", 0, "captain election seed (0 picks one from the clock)")
	_ = simulateCmd.MarkFlagRequired("roster")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	entries, err := roster.Load(rosterPath)
	if err != nil {
		return err
	}
	s := seed
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return simulate(cmd.OutOrStdout(), entries, s)
}

// SeededCaptains elects captains like engine.RandomCaptains but from a
// reproducible source.
func SeededCaptains(r *rand.Rand) engine.CaptainPicker {
	return func(pool map[string]engine.Signup) ([2]string, error) {
		eligible := []string{}
		for _, nick := range engine.SortedNicks(pool) {
			if pool[nick].Captain {
				eligible = append(eligible, nick)
			}
		}
		if len(eligible) < engine.CaptainsNeeded {
			return [2]string{}, fmt.Errorf("%w: have %d", engine.ErrInsufficientCaptains, len(eligible))
		}
		perm := r.Perm(len(eligible))
		return [2]string{eligible[perm[0]], eligible[perm[1]]}, nil
	}
}

func simulate(w io.Writer, entries []roster.Entry, seed uint64) error {
	e := engine.New(engine.WithCaptainPicker(SeededCaptains(rand.New(rand.NewPCG(seed, seed)))))
	if err := roster.Apply(e, entries); err != nil {
		return err
	}
	if need := e.Need(); !need.Satisfied() {
		return fmt.Errorf("roster cannot start a game: need %d captains, %d players, roles %v", need.Captains, need.Players, need.Roles)
	}

	captains, err := e.Stage()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "captains: %s (team 0), %s (team 1)\n", captains[0], captains[1])

	if err := GreedyDraft(e, func(team int, nick string, role engine.Role) {
		fmt.Fprintf(w, "team %d picks %s as %s\n", team, nick, role)
	}); err != nil {
		return err
	}

	teams, err := e.MakeGame()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s %-20s %-20s\n", "ROLE", "TEAM 0", "TEAM 1")
	for _, r := range engine.Roles {
		fmt.Fprintf(w, "%-10s %-20s %-20s\n", r, orDash(teams[0][r]), orDash(teams[1][r]))
	}
	if !engine.CanStartHighlander(teams) {
		fmt.Fprintln(w, "\nteams are too short to start")
	}
	if left := engine.SortedNicks(e.Unstaged()); len(left) > 0 {
		fmt.Fprintf(w, "\nback to signups: %v\n", left)
	}
	return nil
}

// GreedyDraft has each picking captain take the first staged player (by
// nickname) who fills one of their open roles, until nobody fits.
func GreedyDraft(e *engine.Engine, onPick func(team int, nick string, role engine.Role)) error {
	for {
		team, ok := e.PickingTeam()
		if !ok {
			return engine.ErrNotDrafting
		}
		open := e.OpenRoles(team)
		staged := e.Staged()

		nick, role, found := "", engine.Role(""), false
		for _, n := range engine.SortedNicks(staged) {
			for _, r := range staged[n].Roles {
				if slices.Contains(open, r) {
					nick, role, found = n, r, true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return nil
		}

		if err := e.Pick(nick, role); err != nil {
			return err
		}
		if onPick != nil {
			onPick(team, nick, role)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
