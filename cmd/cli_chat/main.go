package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"deal-fit/internal/client"
	"deal-fit/internal/config"
	"deal-fit/internal/domain"
	"deal-fit/internal/service"
)

var (
	userColor      = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed, color.Bold)
	infoColor      = color.New(color.FgYellow)
	dimColor       = color.New(color.Faint)
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// El cliente HTTP no lleva timeout propio: el limite de la consulta lo aplica el gateway.
	apiClient := client.NewAPIClient(cfg.GatewayURL, &http.Client{}, cfg.MaxUploadBytes)
	store := client.NewSessionStore()
	orchestrator := client.NewOrchestrator(store, apiClient, apiClient, zap.NewNop())

	view := &transcriptView{}
	unsubscribe := store.Subscribe(view.render)
	defer unsubscribe()

	printBanner(cfg.GatewayURL)

	for {
		userColor.Print("You > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			fmt.Println("Bye.")
			return
		case line == "/help":
			printHelp()
		case line == "/clear":
			orchestrator.ClearSession()
			infoColor.Println("Conversation cleared.")
		case line == "/remove":
			if store.CurrentDocument() == nil {
				infoColor.Println("No pitch deck uploaded.")
				continue
			}
			orchestrator.RemoveDocument()
			infoColor.Println("Pitch deck removed.")
		case line == "/deck":
			printDocument(store.CurrentDocument())
		case strings.HasPrefix(line, "/upload"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/upload"))
			if path == "" {
				infoColor.Println("Usage: /upload <path-to-pdf>")
				continue
			}
			uploadFlow(ctx, orchestrator, path, cfg.MaxUploadBytes)
		default:
			sendFlow(ctx, orchestrator, line)
		}
	}
}

func sendFlow(ctx context.Context, orchestrator *client.Orchestrator, text string) {
	dimColor.Println("Finding investors...")
	// Las fallas ya quedan en el transcript y en el banner de error.
	_ = orchestrator.Send(ctx, text)
}

func uploadFlow(ctx context.Context, orchestrator *client.Orchestrator, path string, maxBytes int64) {
	req, err := readUpload(path, maxBytes)
	if err != nil {
		errorColor.Printf("Cannot read %s: %v\n", path, err)
		return
	}

	dimColor.Printf("Uploading %s...\n", req.Filename)
	if err := orchestrator.Upload(ctx, req); err != nil {
		return
	}
	infoColor.Printf("Pitch deck %q ready. Ask away.\n", req.Filename)
}

// readUpload arma el pedido con el tamano declarado; no lee archivos que ya exceden el limite.
func readUpload(path string, maxBytes int64) (service.UploadRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return service.UploadRequest{}, err
	}
	if info.IsDir() {
		return service.UploadRequest{}, fmt.Errorf("%s is a directory", path)
	}

	req := service.UploadRequest{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size:        info.Size(),
		Data:        []byte{},
	}
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxUploadBytes
	}
	if info.Size() > maxBytes {
		return req, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return service.UploadRequest{}, err
	}
	req.Data = data
	return req, nil
}

// transcriptView imprime solo lo nuevo de cada snapshot.
type transcriptView struct {
	mu        sync.Mutex
	printed   int
	lastError string
}

func (v *transcriptView) render(state domain.SessionState) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(state.Messages) < v.printed {
		v.printed = 0
	}
	for _, m := range state.Messages[v.printed:] {
		if m.Role == domain.RoleAssistant {
			assistantColor.Printf("Deal Fit [%s] > %s\n", m.Timestamp.Format(time.Kitchen), m.Content)
		}
	}
	v.printed = len(state.Messages)

	current := ""
	if state.Error != nil {
		current = *state.Error
	}
	if current != "" && current != v.lastError {
		errorColor.Printf("! %s\n", current)
	}
	v.lastError = current
}

func printDocument(doc *domain.Document) {
	if doc == nil {
		infoColor.Println("No pitch deck uploaded.")
		return
	}
	infoColor.Printf("%s (id %s, uploaded %s, %d chars of text)\n",
		doc.Name, doc.ID, doc.UploadedAt.Local().Format(time.RFC1123), len(doc.Text()))
}

func printBanner(gatewayURL string) {
	color.New(color.FgMagenta, color.Bold).Println("===== Deal Fit =====")
	dimColor.Printf("Gateway: %s\n", gatewayURL)
	printHelp()
}

func printHelp() {
	fmt.Println("Ask about investors, or use a command:")
	fmt.Println("  /upload <path>  upload a PDF pitch deck")
	fmt.Println("  /deck           show the active pitch deck")
	fmt.Println("  /remove         remove the active pitch deck")
	fmt.Println("  /clear          clear the conversation")
	fmt.Println("  /quit           exit")
}
