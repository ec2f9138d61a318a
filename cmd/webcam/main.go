package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/logging"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"gocv.io/x/gocv"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to the YAML config file")
		deviceID   = flag.Int("device", 0, "Video capture device")
		video      = flag.String("video", "", "Video file to read instead of a device")
		showWindow = flag.Bool("show-window", true, "Show the annotated frames")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ logging: %v\n", err)
		os.Exit(1)
	}

	d, err := detector.NewFromConfig(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create detector")
	}
	defer d.Close()

	var capture *gocv.VideoCapture
	if *video != "" {
		capture, err = gocv.OpenVideoCapture(*video)
	} else {
		capture, err = gocv.OpenVideoCapture(*deviceID)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to open video capture")
	}
	defer capture.Close()

	var window *gocv.Window
	if *showWindow {
		window = gocv.NewWindow("YOLO")
		defer window.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frame := gocv.NewMat()
	defer frame.Close()
	input := gocv.NewMat()
	defer input.Close()

	size := d.Config().InputSize
	green := color.RGBA{G: 255, A: 255}

	var (
		lastChecksum string
		detections   []postprocess.Detection
		fps          float64
		frameCount   int
		lastTime     = time.Now()
	)

	log.Info("🎥 reading frames")
	for ctx.Err() == nil {
		if ok := capture.Read(&frame); !ok {
			log.Info("end of stream")
			return
		}
		if frame.Empty() {
			continue
		}

		frameCount++
		if elapsed := time.Since(lastTime).Seconds(); elapsed >= 1 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
		}

		// Static cameras repeat frames; reuse the last result for them.
		if checksum := frameChecksum(frame); checksum == "" || checksum != lastChecksum {
			lastChecksum = checksum

			gocv.Resize(frame, &input, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)
			img, err := input.ToImage()
			if err != nil {
				log.WithError(err).Warn("⚠️ frame conversion failed")
				continue
			}

			if detections, err = d.DetectImage(ctx, img); err != nil {
				log.WithError(err).Error("detection failed")
				continue
			}
			log.WithField("detections", len(detections)).WithField("fps", fmt.Sprintf("%.1f", fps)).Debug("frame")
		}

		if window == nil {
			continue
		}

		sx := float32(frame.Cols()) / float32(size)
		sy := float32(frame.Rows()) / float32(size)
		for _, det := range detections {
			r := image.Rect(
				int(det.Box.Left*sx), int(det.Box.Top*sy),
				int(det.Box.Right*sx), int(det.Box.Bottom*sy),
			)
			gocv.Rectangle(&frame, r, green, 2)
			gocv.PutText(&frame, fmt.Sprintf("%s %.0f%%", det.Label, det.Confidence*100),
				image.Pt(r.Min.X, r.Min.Y-4), gocv.FontHersheySimplex, 0.5, green, 1)
		}
		gocv.PutText(&frame, fmt.Sprintf("FPS %.1f", fps), image.Pt(10, 20), gocv.FontHersheySimplex, 0.6, green, 2)

		window.IMShow(frame)
		if window.WaitKey(1) == 27 {
			return
		}
	}
}

// frameChecksum returns the hex MD5 of the frame's pixel bytes, or "" when
// the Mat is not 8-bit.
func frameChecksum(mat gocv.Mat) string {
	data, err := mat.DataPtrUint8()
	if err != nil {
		return ""
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
