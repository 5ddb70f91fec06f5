package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rinkworks/rinkmotion/internal/interp"
	"github.com/rinkworks/rinkmotion/internal/play"
	"github.com/rinkworks/rinkmotion/internal/timeline"
)

func main() {
	var playPath string
	var speed float64
	var method string
	var loop bool
	flag.StringVar(&playPath, "play", "", "Path to play JSON")
	flag.Float64Var(&speed, "speed", 1.0, "Playback speed multiplier")
	flag.StringVar(&method, "method", "cubic", "Interpolation method")
	flag.BoolVar(&loop, "loop", false, "Loop playback")
	flag.Parse()

	if playPath == "" {
		log.Fatal("Provide -play path to a play JSON")
	}
	data, err := os.ReadFile(playPath)
	if err != nil {
		log.Fatalf("read play: %v", err)
	}
	p, err := play.Decode(data)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}

	eng := timeline.New(timeline.Options{FPS: 60, Method: interp.Method(method)})
	done := make(chan struct{}, 1)
	eng.Subscribe(func(ev timeline.Event) {
		switch ev.Kind {
		case timeline.EventStateChange:
			fmt.Printf("[State] %s\n", ev.State)
		case timeline.EventKeyframeHit:
			fmt.Printf("[Keyframe] t=%dms players=%d\n", ev.Keyframe.Timestamp, len(ev.Keyframe.Players))
		case timeline.EventPlayEnd:
			fmt.Println("[PlayEnd]")
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	if err := eng.Load(p); err != nil {
		log.Fatalf("load: %v", err)
	}
	eng.SetSpeed(speed)
	eng.SetLoop(loop)
	eng.Play()

	start := time.Now()
	if loop {
		// Looping playback never ends; sample the clock for a while.
		for i := 0; i < 20; i++ {
			time.Sleep(250 * time.Millisecond)
			f := eng.CurrentFrame()
			fmt.Printf("t=%.0fms puck=(%.1f, %.1f)\n", eng.CurrentTime(), f.Puck.X, f.Puck.Y)
		}
		eng.Stop()
		return
	}
	<-done
	fmt.Println("Done at t=", time.Since(start).Seconds())
}
