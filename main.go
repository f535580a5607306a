package main

import "github.com/Free-Guy-IR/monitoring-user-web/internal/cmd"

func main() {
	cmd.Execute()
}
