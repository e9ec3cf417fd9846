package main

import (
	"fmt"
	"image/color"
	"strings"

	eb "github.com/hajimehoshi/ebiten/v2"
	ebu "github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

type DebugMsg struct {
	Key   string
	Value string
}

var TheDebugPrintManager struct {
	DebugMsgs           []DebugMsg
	PersistentDebugMsgs []DebugMsg

	builder strings.Builder
}

func DebugPrintf(key, fmtStr string, values ...any) {
	DebugPuts(key, fmt.Sprintf(fmtStr, values...))
}

func DebugPrint(key string, values ...any) {
	DebugPuts(key, fmt.Sprint(values...))
}

func putMsg(msgs []DebugMsg, key, value string) []DebugMsg {
	for i, msg := range msgs {
		if msg.Key == key {
			msgs[i].Value = value
			return msgs
		}
	}
	return append(msgs, DebugMsg{Key: key, Value: value})
}

func DebugPuts(key, value string) {
	dm := &TheDebugPrintManager
	dm.DebugMsgs = putMsg(dm.DebugMsgs, key, value)
}

// DebugPutsPersist adds a message that survives ClearDebugMsgs.
func DebugPutsPersist(key, value string) {
	dm := &TheDebugPrintManager
	dm.PersistentDebugMsgs = putMsg(dm.PersistentDebugMsgs, key, value)
}

func ClearDebugMsgs() {
	dm := &TheDebugPrintManager
	dm.DebugMsgs = dm.DebugMsgs[:0]
}

func DrawDebugMsgs(dst *eb.Image) {
	dm := &TheDebugPrintManager

	dm.builder.Reset()

	for _, msgs := range [][]DebugMsg{dm.PersistentDebugMsgs, dm.DebugMsgs} {
		for _, msg := range msgs {
			// builder doesn't actually errors out
			dm.builder.WriteString(msg.Key)
			dm.builder.WriteString(": ")
			dm.builder.WriteString(msg.Value)
			dm.builder.WriteString("\n")
		}
	}

	const (
		lineHeight = 16
		charWidth  = 6
		margin     = 5
	)

	lines := len(dm.PersistentDebugMsgs) + len(dm.DebugMsgs)
	longest := 0
	for _, line := range strings.Split(dm.builder.String(), "\n") {
		longest = max(longest, len(line))
	}

	vector.DrawFilledRect(
		dst, 0, 0,
		float32(longest*charWidth+margin*2), float32(lines*lineHeight+margin*2),
		color.NRGBA{0, 0, 0, 150}, false,
	)
	ebu.DebugPrintAt(dst, dm.builder.String(), margin, margin)
}
