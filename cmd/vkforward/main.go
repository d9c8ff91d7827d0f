// Command vkforward renders an OBJ model with a fly camera.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/spf13/pflag"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/vkforward/assets"
	"github.com/vkngwrapper/vkforward/config"
	"github.com/vkngwrapper/vkforward/renderer"
	"github.com/vkngwrapper/vkforward/window"
)

func init() {
	// SDL and the Vulkan queue submission loop must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	flags := config.NewFlags("vkforward")
	err := flags.Parse(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprint(os.Stdout, flags.Usage())
		return
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err == nil {
		flags.Apply(&cfg)
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "vkforward: %v\n", err)
		os.Exit(2)
	}

	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger)
	if err != nil {
		logger.Error("vkforward failed", "error", fmt.Sprintf("%+v", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) (err error) {
	scene, err := assets.LoadScene(ctx, cfg.SceneOptions(), logger)
	if err != nil {
		return err
	}
	for i := range scene.Meshes {
		scene.Meshes[i].Model = cfg.ModelTransform()
	}

	win, err := window.Open(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, win.Close())
	}()

	engine, err := renderer.New(win, cfg.RendererOptions(), scene, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, engine.Close())
	}()

	info := engine.DeviceInfo()
	logger.Info("renderer ready", "device", info.Name, "frames", cfg.Renderer.FramesInFlight)

	cam := cfg.NewCamera()
	last := hrtime.Now()
	frames := 0
	for !win.ShouldClose() && ctx.Err() == nil {
		win.PollEvents()

		now := hrtime.Now()
		elapsed := now - last
		last = now

		input := win.TakeInput()
		cam.Look(input.LookX, input.LookY)
		cam.Move(input.Movement, elapsed)

		width, height := win.DrawableSize()
		if width == 0 || height == 0 {
			// Minimized: keep pumping events without rendering.
			sdl.Delay(16)
			continue
		}

		err = engine.DrawFrame(cam.Scene(engine.Extent()))
		if err != nil {
			return err
		}
		frames++
	}

	logger.Info("shutting down", "frames", frames)
	return nil
}
