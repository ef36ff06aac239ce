package main

import (
	"fmt"

	"crux/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	fmt.Printf("wake_word=%q language=%s stt.mode=%s tts.mode=%s gpt.enabled=%v\n",
		cfg.App.WakeWord, cfg.Language(), cfg.STT.Mode, cfg.TTS.Mode, cfg.GPT.Enabled)
	for name, launch := range cfg.Apps {
		fmt.Printf("app %q -> %s\n", name, launch)
	}
}
