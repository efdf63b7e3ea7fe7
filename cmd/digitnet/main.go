package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digitnet/internal/checkpoint"
	"digitnet/internal/config"
	"digitnet/internal/dataset"
	"digitnet/internal/matrix"
	"digitnet/internal/model"
	"digitnet/internal/trainer"
)

const defaultConfigPath = "configs/digitnet.yaml"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage:
  digitnet [flags] train <dataPath> <savePath>
  digitnet [flags] train-again <dataPath> <loadPath> <savePath>
  digitnet [flags] predict <imagePath> <paramsPath>

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	cfgPath := flag.String("config", defaultConfigPath, "Path to YAML config")
	iterations := flag.Int("iterations", 0, "Number of training iterations")
	batchSize := flag.Int("batch-size", 0, "Mini-batch size")
	learningRate := flag.Float64("learning-rate", 0, "Gradient descent step")
	seed := flag.Int64("seed", 0, "PRNG seed (0 seeds from the clock)")
	debug := flag.Bool("debug", false, "Log batch accuracy with progress")
	numWorkers := flag.Int("num-workers", 0, "Number of image decoding workers")
	logEvery := flag.Int("log-every", 0, "Log every N iterations")
	checkpointPath := flag.String("checkpoint-path", "", "Directory overwritten by periodic checkpoints")
	flag.Usage = usage

	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		Iterations:     *iterations,
		BatchSize:      *batchSize,
		LearningRate:   *learningRate,
		Seed:           *seed,
		Debug:          *debug,
		NumWorkers:     *numWorkers,
		LogEvery:       *logEvery,
		CheckpointPath: *checkpointPath,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	switch cmd, rest := args[0], args[1:]; {
	case cmd == "train" && len(rest) == 2:
		err = train(ctx, cfg, rest[0], "", rest[1])
	case cmd == "train-again" && len(rest) == 3:
		err = train(ctx, cfg, rest[0], rest[1], rest[2])
	case cmd == "predict" && len(rest) == 2:
		err = predict(os.Stdout, cfg, rest[0], rest[1])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		log.Fatalf("%s failed: %v", args[0], err)
	}
}

// loadConfig tolerates a missing file only at the default location.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		return config.LoadOrDefault(path)
	}
	return config.Load(path)
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Printf("seed=%d", seed)
	return rand.New(rand.NewSource(seed))
}

func train(ctx context.Context, cfg *config.Config, dataPath, loadPath, savePath string) error {
	ds, err := dataset.Load(ctx, dataset.LoadOptions{
		Root:       dataPath,
		Classes:    cfg.Classes,
		ImageSize:  cfg.ImageSize,
		Threshold:  cfg.Threshold,
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		return err
	}

	var initial *model.Params
	if loadPath != "" {
		p, meta, err := checkpoint.Load(loadPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", loadPath, err)
		}
		if meta != nil {
			log.Printf("resuming run=%s iteration=%d from=%s", meta.RunID, meta.Iteration, loadPath)
		}
		initial = p
	}

	tr, err := trainer.New(trainer.RunConfig{
		Iterations:      cfg.Iterations,
		BatchSize:       cfg.BatchSize,
		LearningRate:    cfg.LearningRate,
		HiddenLayers:    cfg.HiddenLayers,
		InitRange:       cfg.InitRange,
		LogEvery:        cfg.LogEvery,
		CheckpointEvery: cfg.CheckpointEvery,
		CheckpointPath:  cfg.CheckpointPath,
		Debug:           cfg.Debug,
	}, newRand(cfg.Seed))
	if err != nil {
		return err
	}

	params, err := tr.Run(ctx, ds, initial)
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted at iteration %d, latest parameters in %s", tr.Iteration(), cfg.CheckpointPath)
	}
	if err != nil {
		return err
	}

	out, err := model.Predict(params, ds.Input)
	if err != nil {
		return err
	}
	log.Printf("run=%s training_accuracy=%.4f loss=%.4f",
		tr.RunID(), model.Accuracy(out, ds.Output), model.CrossEntropy(out, ds.Output))

	if err := checkpoint.Save(savePath, params, checkpoint.Describe(params, tr.RunID(), cfg.Iterations)); err != nil {
		return err
	}
	log.Printf("run=%s saved=%s", tr.RunID(), savePath)
	return nil
}

// gridSize recovers the image side length a parameter set was trained on.
func gridSize(p *model.Params) (int, error) {
	n := p.InputSize()
	size := int(math.Round(math.Sqrt(float64(n))))
	if size*size != n {
		return 0, fmt.Errorf("parameters take %d inputs, which is not a square image", n)
	}
	return size, nil
}

func predict(w io.Writer, cfg *config.Config, imagePath, paramsPath string) error {
	params, _, err := checkpoint.Load(paramsPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", paramsPath, err)
	}
	size, err := gridSize(params)
	if err != nil {
		return err
	}
	if size != cfg.ImageSize {
		log.Printf("image_size=%d from %s overrides configured image_size=%d", size, paramsPath, cfg.ImageSize)
	}
	features, err := dataset.DecodeFile(imagePath, size, cfg.Threshold)
	if err != nil {
		return err
	}
	x, err := matrix.FromSlice(len(features), 1, features)
	if err != nil {
		return err
	}
	class, err := model.PredictClass(params, x)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, dataset.Symbol(class, params.OutputSize()))
	return err
}
