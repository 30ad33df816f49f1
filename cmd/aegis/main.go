// Package main 是命令行工具 aegis 的入口点。
package main

import (
	"aegis-rag-go/internal/cli"
	"fmt"
	"os"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
