// Operator CLI entry point.
package main

import "github.com/folira/folira/internal/interfaces/cli"

func main() {
	cli.Execute()
}
