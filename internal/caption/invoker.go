// Package caption asks a vision model to name a screenshot.
package caption

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shotnamer/internal/services"
)

// Prompt is sent with every image. It asks for a slide title or a three-word
// scene description in snake_case without an extension.
const Prompt = "Analyze this image. " +
	"If it is a slide or document, extract the Main Title only. " +
	"If it is a generic scene, describe it in 3 words. " +
	"Output snake_case only. Do NOT output the file extension."

// Service is the captioning backend.
type Service interface {
	DescribeImage(ctx context.Context, model, prompt string, image []byte) (string, error)
}

// Invoker makes one captioning call per file.
type Invoker struct {
	service  Service
	model    string
	readFile func(string) ([]byte, error)
}

// NewInvoker returns an Invoker that captions with model on service.
func NewInvoker(service Service, model string) *Invoker {
	return &Invoker{
		service:  service,
		model:    strings.TrimSpace(model),
		readFile: os.ReadFile,
	}
}

// Model returns the model identifier sent with each request.
func (i *Invoker) Model() string {
	return i.model
}

// Caption returns the raw reply text for the image at path. Every failure,
// including an unreadable file, carries services.ErrInvocationFailed. There is
// no retry.
func (i *Invoker) Caption(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if i == nil || i.service == nil {
		return "", services.Wrap(services.ErrInvocationFailed, "caption", "invoke", name, fmt.Errorf("no captioning service configured"))
	}
	image, err := i.readFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrInvocationFailed, "caption", "read image", name, err)
	}
	text, err := i.service.DescribeImage(ctx, i.model, Prompt, image)
	if err != nil {
		return "", services.Wrap(services.ErrInvocationFailed, "caption", "describe image", name, err)
	}
	return text, nil
}
