/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package main

import (
	"github.com/EmbarkStudios/cargo-fetcher/cmd"
)

func main() {
	cmd.Execute()
}
