package main

import "lrt-predictor/internal/cmd"

func main() {
	cmd.Execute()
}
