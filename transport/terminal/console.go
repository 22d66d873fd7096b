package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
)

// ErrQuit is returned by a prompt when input ends
var ErrQuit = errors.New("input closed")

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	victoryColor = color.New(color.FgGreen, color.Bold)
)

// Console is the interactive text front end. It drives a single session
// through the game service.
type Console struct {
	service    service.GameService
	configName string
	in         *bufio.Scanner
	out        io.Writer

	sessionID string
	rules     *engine.Rules
	over      bool
}

// NewConsole creates a console reading from in and writing to out
func NewConsole(gameService service.GameService, configName string, in io.Reader, out io.Writer) *Console {
	return &Console{
		service:    gameService,
		configName: configName,
		in:         bufio.NewScanner(in),
		out:        out,
	}
}

// SessionID returns the session the console is playing, empty before start
func (c *Console) SessionID() string {
	return c.sessionID
}

// Run asks for a screen name, starts a game and loops over the main menu
// until the player quits, the game ends or input closes.
func (c *Console) Run(ctx context.Context) error {
	titleColor.Fprintln(c.out, "Welcome to Operation Skytrack!")

	if err := c.start(ctx); err != nil {
		if errors.Is(err, ErrQuit) {
			fmt.Fprintln(c.out, "No player selected. Exiting the game.")
			return nil
		}
		return err
	}

	for !c.over {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(c.out)
		titleColor.Fprintln(c.out, "Main Menu:")
		fmt.Fprintln(c.out, "1. Travel to another airport")
		fmt.Fprintln(c.out, "2. Refuel")
		fmt.Fprintln(c.out, "3. Check clues and interact with NPCs")
		fmt.Fprintln(c.out, "4. Show status")
		fmt.Fprintln(c.out, "5. End the game")

		choice, err := c.prompt("What would you like to do? ")
		if err != nil {
			return c.quit(err)
		}

		switch choice {
		case "1":
			err = c.travel(ctx)
		case "2":
			err = c.refuel(ctx)
		case "3":
			err = c.investigate(ctx)
		case "4":
			err = c.status(ctx)
		case "5", "q", "quit":
			fmt.Fprintln(c.out, "Thanks for playing!")
			return nil
		default:
			warnColor.Fprintln(c.out, "Invalid choice, please try again.")
		}
		if err != nil {
			return c.quit(err)
		}
	}

	fmt.Fprintln(c.out, "Thanks for playing!")
	return nil
}

func (c *Console) quit(err error) error {
	if errors.Is(err, ErrQuit) {
		fmt.Fprintln(c.out, "\nThanks for playing!")
		return nil
	}
	return err
}

func (c *Console) start(ctx context.Context) error {
	for {
		name, err := c.prompt("Enter your screen name: ")
		if err != nil {
			return err
		}

		info, err := c.service.StartGame(ctx, name, c.configName)
		if err != nil {
			if engine.CodeOf(err) == engine.CodeInvalidInput {
				warnColor.Fprintf(c.out, "%s\n", err)
				continue
			}
			return err
		}

		c.sessionID = info.ID
		c.rules = info.Rules
		successColor.Fprintln(c.out, info.Message)
		if info.Rules != nil {
			fmt.Fprintf(c.out, "You have %.0f units of fuel and %d refuel attempts. Find the fugitive!\n",
				info.Rules.StartingFuel, info.Rules.MaxRefuelAttempts)
		}
		return nil
	}
}

// travel lists the destinations, previews the chosen trip and flies on
// confirmation. "cancel" or an empty answer returns to the menu.
func (c *Console) travel(ctx context.Context) error {
	result, err := c.service.Destinations(ctx, c.sessionID)
	if err != nil {
		return c.report(ctx, err)
	}
	if len(result.Destinations) == 0 {
		fmt.Fprintln(c.out, "No available destinations.")
		return nil
	}

	fmt.Fprintf(c.out, "\nYou are at %s with %.2f units of fuel.\n", result.Current.Name, result.Fuel)
	titleColor.Fprintln(c.out, "Available Airports:")
	for i, d := range result.Destinations {
		line := fmt.Sprintf("%d. %s (%s)", i+1, d.To.Name, d.To.Country)
		if d.Affordable {
			fmt.Fprintln(c.out, line)
		} else {
			fmt.Fprintln(c.out, color.HiBlackString("%s - out of range", line))
		}
	}
	if result.FuelRisk != "" {
		fmt.Fprintf(c.out, "Fuel risk: %s\n", result.FuelRisk)
	}

	for {
		choice, err := c.prompt("Select the airport number to travel to (or type 'cancel' to go back to the main menu): ")
		if err != nil {
			return err
		}
		if choice == "" || strings.EqualFold(choice, "cancel") {
			fmt.Fprintln(c.out, "Returning to the main menu.")
			return nil
		}

		index, err := strconv.Atoi(choice)
		if err != nil || index < 1 || index > len(result.Destinations) {
			warnColor.Fprintln(c.out, "Invalid choice. Please select a valid airport number.")
			continue
		}
		destination := result.Destinations[index-1]

		plan, err := c.service.PlanTrip(ctx, c.sessionID, destination.To.ID)
		if err != nil {
			return c.report(ctx, err)
		}
		fmt.Fprintf(c.out, "Distance to %s: %.2f Km\n", plan.To.Name, plan.DistanceKm)
		fmt.Fprintf(c.out, "Required fuel to reach destination: %.2f units\n", plan.FuelCost)

		ok, err := c.confirm("Do you want to travel to this airport? (yes/no): ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "You canceled traveling. Select another airport.")
			continue
		}

		travel, err := c.service.Travel(ctx, c.sessionID, plan.To.ID)
		if err != nil {
			return c.report(ctx, err)
		}

		successColor.Fprintln(c.out, travel.Message)
		c.outcome(travel.Report.Result, travel.Report.Outcome.Plan.To.Name)
		return nil
	}
}

func (c *Console) refuel(ctx context.Context) error {
	status, err := c.service.Status(ctx, c.sessionID)
	if err != nil {
		return c.report(ctx, err)
	}
	if status.RemainingRefuels == 0 {
		warnColor.Fprintf(c.out, "You have no remaining refuel attempts. Maximum refuel attempts (%d) reached.\n", status.MaxRefuels)
		return nil
	}

	// Prices only apply under rules that restrict refuels to fuel-selling airports
	airport := status.Airport
	priced := false
	if c.rules != nil && c.rules.RequireFuelAvailable {
		if !airport.SellsFuel() {
			warnColor.Fprintf(c.out, "Fuel is not available at %s.\n", airport.Name)
			return nil
		}
		priced = true
	}
	if priced {
		fmt.Fprintf(c.out, "Fuel price at %s: %.2f per unit.\n", airport.Name, airport.FuelPrice)
	}
	fmt.Fprintf(c.out, "Fuel: %.2f | Refuels left: %d/%d\n", status.Player.Fuel, status.RemainingRefuels, status.MaxRefuels)

	for {
		answer, err := c.prompt("Enter the number of fuel units you want to buy (or 'cancel'): ")
		if err != nil {
			return err
		}
		if answer == "" || strings.EqualFold(answer, "cancel") {
			fmt.Fprintln(c.out, "Refueling cancelled.")
			return nil
		}

		units, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			warnColor.Fprintln(c.out, "Invalid input. Please enter a valid number.")
			continue
		}

		question := fmt.Sprintf("Do you want to buy %.0f units of fuel? (yes/no): ", units)
		if priced {
			question = fmt.Sprintf("Do you want to buy %.0f units of fuel for %.2f? (yes/no): ", units, units*airport.FuelPrice)
		}
		ok, err := c.confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "Refueling cancelled.")
			return nil
		}

		result, err := c.service.Refuel(ctx, c.sessionID, units)
		if err != nil {
			if rejected := c.report(ctx, err); rejected != nil {
				return rejected
			}
			if engine.CodeOf(err) == engine.CodeLimitExceeded {
				continue
			}
			return nil
		}

		successColor.Fprintln(c.out, "Refueling successful!")
		fmt.Fprintln(c.out, result.Message)
		c.outcome(result.Result, "")
		return nil
	}
}

func (c *Console) investigate(ctx context.Context) error {
	found, err := c.service.Investigate(ctx, c.sessionID)
	if err != nil {
		return c.report(ctx, err)
	}

	fmt.Fprintln(c.out)
	if len(found.Clues) == 0 {
		fmt.Fprintln(c.out, "No clues available at this airport.")
	} else {
		titleColor.Fprintln(c.out, "Available Clues at this Airport:")
		for _, clue := range found.Clues {
			fmt.Fprintf(c.out, "Description: %s\n", clue.Description)
		}
	}

	fmt.Fprintln(c.out)
	if len(found.NPCs) == 0 {
		fmt.Fprintln(c.out, "No NPCs are available to interact with at this airport.")
	} else {
		titleColor.Fprintln(c.out, "NPCs available to talk to:")
		for _, npc := range found.NPCs {
			fmt.Fprintf(c.out, "Name: %s, Role: %s, Info: %s\n", npc.Name, npc.Role, npc.Info)
		}
	}
	return nil
}

func (c *Console) status(ctx context.Context) error {
	status, err := c.service.Status(ctx, c.sessionID)
	if err != nil {
		return c.report(ctx, err)
	}

	fmt.Fprintln(c.out)
	titleColor.Fprintf(c.out, "Agent %s\n", status.Player.ScreenName)
	fmt.Fprintf(c.out, "Location: %s, %s\n", status.Airport.Name, status.Airport.Country)
	fmt.Fprintf(c.out, "Fuel: %.2f units\n", status.Player.Fuel)
	fmt.Fprintf(c.out, "Refuel attempts: %d of %d used\n", status.Player.RefuelAttempts, status.MaxRefuels)
	fmt.Fprintf(c.out, "Moves: %d | Fuel risk: %s\n", status.Game.MovesCount, status.FuelRisk)

	if len(status.History) == 0 {
		fmt.Fprintln(c.out, "No flights yet.")
		return nil
	}

	fmt.Fprintln(c.out)
	WriteHistoryTable(c.out, status.History)
	return nil
}

// WriteHistoryTable prints movements as an aligned table
func WriteHistoryTable(out io.Writer, history []engine.MovementView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEPARTURE\tDESTINATION\tDISTANCE (KM)\tDATE")
	for _, m := range history {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\n", m.FromName, m.ToName, m.DistanceKm, m.MovedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

// outcome announces a concluded game and stops the menu loop
func (c *Console) outcome(result engine.GameOutcome, arrivedAt string) {
	switch result.Status {
	case engine.StatusWon:
		victoryColor.Fprintln(c.out, "Congratulations! You've caught the fugitive and won the game!")
		c.over = true
	case engine.StatusLost:
		errorColor.Fprintf(c.out, "Game over: %s.\n", result.Reason)
		c.over = true
	default:
		if arrivedAt != "" {
			fmt.Fprintf(c.out, "You've arrived at %s, but the fugitive is not here. Keep searching!\n", arrivedAt)
		}
	}
}

// report prints a rejection and reports whether the game ended with it.
// Errors that are not game rejections are returned.
func (c *Console) report(ctx context.Context, err error) error {
	var rejection *engine.Error
	if !errors.As(err, &rejection) {
		return err
	}
	if rejection.Code == engine.CodeStorageUnavailable {
		return err
	}

	errorColor.Fprintln(c.out, rejection.Message)

	// A rejection can leave the player with no way forward
	if status, statusErr := c.service.Status(ctx, c.sessionID); statusErr == nil && status.Result.Status != engine.StatusActive {
		c.outcome(status.Result, "")
	}
	return nil
}

func (c *Console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", ErrQuit
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// confirm asks until the answer is yes or no
func (c *Console) confirm(label string) (bool, error) {
	for {
		answer, err := c.prompt(label)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		warnColor.Fprintln(c.out, "Invalid input. Please enter 'yes' or 'no'.")
	}
}
