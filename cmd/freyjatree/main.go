/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"freyjatree/cmd/freyjatree/cmd"
	"freyjatree/pkg/di"
)

func main() {
	// Initialize dependency injection container
	container := di.NewContainer()

	// Inject dependencies into cmd package
	cmd.SetContainer(container)

	cmd.Execute()
}
