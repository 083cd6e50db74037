/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import "github.com/josephgoksu/AgentWing/cmd"

func main() {
	cmd.Execute()
}
