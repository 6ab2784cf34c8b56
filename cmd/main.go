package main

import (
	"fmt"
	"os"

	"github.com/yungbote/docproc-backend/internal/app"
	"github.com/yungbote/docproc-backend/internal/utils"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to initialize coordinator: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	port := utils.GetEnv("PORT", "8000", a.Log)
	fmt.Printf("Coordinator listening on :%s\n", port)
	if err := a.Run(":" + port); err != nil {
		a.Log.Warn("Server failed", "error", err)
	}
}
