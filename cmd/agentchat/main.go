package main

import "github.com/dayuer/agentchat/cmd"

func main() {
	cmd.Execute()
}
