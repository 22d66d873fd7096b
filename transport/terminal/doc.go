// Package terminal is the interactive console for Operation Skytrack.
//
// The console asks for a screen name, starts a chase through the game
// service and then loops over a numbered menu: travel, refuel, investigate,
// status and quit. Every prompt accepts "cancel" (or an empty line) to go
// back, and confirmations accept yes/no. All game rules live behind the
// service; the console only prompts and prints.
//
// Usage:
//
//	console := terminal.NewConsole(gameService, "classic", os.Stdin, os.Stdout)
//	if err := console.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package terminal
