package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr/types"
	"gwa-helper/api/internal/util"
)

const maxDownloadBytes = 20 << 20

func (r *Router) acceptPhoto(ctx context.Context, msg tgbotapi.Message) {
	ph := msg.Photo[len(msg.Photo)-1]
	r.acceptFile(ctx, msg, ph.FileID)
}

// acceptDocument принимает картинку, отправленную файлом (без сжатия Telegram).
func (r *Router) acceptDocument(ctx context.Context, msg tgbotapi.Message) {
	r.acceptFile(ctx, msg, msg.Document.FileID)
}

func (r *Router) acceptFile(ctx context.Context, msg tgbotapi.Message, fileID string) {
	cid := msg.Chat.ID
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	imgBytes, err := r.download(ctx, url)
	if err != nil {
		r.SendError(cid, err)
		return
	}

	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}

	bi, _ := r.batches.LoadOrStore(key, &photoBatch{
		ChatID: cid, Key: key, MediaGroupID: msg.MediaGroupID, images: make([][]byte, 0, 4),
	})
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.images = append(b.images, imgBytes)
	first := len(b.images) == 1
	// остановленный таймер уже не вызовет Done сам
	if b.timer != nil && b.timer.Stop() {
		r.wg.Done()
	}
	r.wg.Add(1)
	b.timer = time.AfterFunc(r.Debounce, func() {
		defer r.wg.Done()
		r.processBatch(ctx, key)
	})
	b.mu.Unlock()

	if first {
		r.send(cid, "Photo received. If your grades span several photos, send them together; I'll combine the pages.")
	}
}

func (r *Router) processBatch(ctx context.Context, key string) {
	bi, ok := r.batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	chatID := b.ChatID
	b.mu.Unlock()

	if len(images) == 0 {
		return
	}
	img := images[0]
	if len(images) > 1 {
		merged, err := combineAsOne(images)
		if err != nil {
			r.SendError(chatID, fmt.Errorf("combine pages: %w", err))
			return
		}
		img = merged
	}
	r.runExtraction(ctx, chatID, img)
}

// runExtraction ведёт один проход машины состояний извлечения для чата.
func (r *Router) runExtraction(ctx context.Context, chatID int64, img []byte) {
	st := r.state(chatID)
	if err := st.session.Begin(); err != nil {
		if errors.Is(err, extraction.ErrInFlight) {
			r.send(chatID, "Still extracting the previous image, please wait.")
			return
		}
		r.SendError(chatID, err)
		return
	}
	st.mu.Lock()
	st.lastImg = img
	st.pending = nil
	st.mu.Unlock()

	eng := r.EngManager.Get(chatID)
	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	res, err := eng.ExtractCourses(cctx, types.ExtractRequest{Image: img, Mime: util.SniffMimeHTTP(img)})
	if err != nil {
		r.Log.Error("extract failed", "chat_id", chatID, "engine", eng.Name(), "err", err)
	}
	out, ok := st.session.Finish(res, err)
	if !ok {
		// пользователь нажал Cancel, пока шёл запрос
		return
	}
	r.Log.Info("extract outcome", "chat_id", chatID, "engine", eng.Name(), "state", string(out.State), "courses", len(out.Courses))
	r.showOutcome(chatID, st, out)
}

func combineAsOne(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for _, b := range images {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			if try, err2 := tryDecodeStrict(b); err2 == nil {
				img = try
			} else {
				return nil, err
			}
		}
		decoded = append(decoded, img)
		bounds := img.Bounds()
		if bounds.Dx() > maxW {
			maxW = bounds.Dx()
		}
		sumH += bounds.Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, errors.New("empty images")
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(dst, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	final := image.Image(dst)
	if totalPx := maxW * sumH; totalPx > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(totalPx))
		newW := max(int(float64(maxW)*scale+0.5), 1)
		newH := max(int(float64(sumH)*scale+0.5), 1)
		final = scaleDownNN(dst, newW, newH)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, final, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func tryDecodeStrict(b []byte) (image.Image, error) {
	switch util.SniffMimeHTTP(b) {
	case "image/jpeg":
		return jpeg.Decode(bytes.NewReader(b))
	case "image/png":
		return png.Decode(bytes.NewReader(b))
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	return img, err
}

func scaleDownNN(src image.Image, newW, newH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	sb := src.Bounds()
	srcW, srcH := sb.Dx(), sb.Dy()
	for y := 0; y < newH; y++ {
		sy := sb.Min.Y + (y*srcH)/newH
		for x := 0; x < newW; x++ {
			sx := sb.Min.X + (x*srcW)/newW
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("download status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}
