package main

import (
	eb "github.com/hajimehoshi/ebiten/v2"
)

const (
	ShowDebugConsoleKey eb.Key = eb.KeyF1
	ReloadShadersKey    eb.Key = eb.KeyF5
	CopyParamsKey       eb.Key = eb.KeyF10
	ScreenshotKey       eb.Key = eb.KeyP
)
