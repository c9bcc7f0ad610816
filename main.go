package main

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"glimmer/capture"
	"glimmer/counter"
	"glimmer/display"
	"glimmer/model"
	"glimmer/render"
)

const panelName = "GLM01"
const panelWidth = 512

func main() {
	fmt.Println("Hello, Glimmer!")

	conn, err := display.FromBluetoothName(panelName)
	if err != nil {
		slog.Error("Couldn't find panel", "err", err)
		return
	}
	if err := conn.Connect(); err != nil {
		slog.Error("Couldn't connect to panel", "err", err)
		return
	}
	defer conn.Disconnect()
	panel := conn.GetPanel()

	r := NewRepository()
	defer r.Close()

	pulses, err := counter.New(panel.PulseInput())
	if err != nil {
		slog.Error("Couldn't start pulse counter", "err", err)
		return
	}
	defer pulses.Close()

	session, err := r.CreateSession(panelName)
	if err != nil {
		slog.Error("Couldn't create capture session", "err", err)
		return
	}

	// sample the counter into the capture session once a minute
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			if err := r.RecordSample(session.Id, time.Now(), pulses.Count()); err != nil {
				slog.Error("Couldn't record sample", "err", err)
			}
		}
	}()

	mux := http.NewServeMux()

	mux.HandleFunc("/frame", func(w http.ResponseWriter, req *http.Request) {
		handleFrame(panel, w, req)
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Only GET method is supported", http.StatusMethodNotAllowed)
			return
		}
		writeJson(w, model.FromPanelInfo(panel.Info()))
	})

	mux.HandleFunc("/counter", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Only GET method is supported", http.StatusMethodNotAllowed)
			return
		}
		writeJson(w, model.CounterResponse{
			Count:   pulses.Count(),
			Session: session.Uuid.String(),
		})
	})

	mux.HandleFunc("/counter/reset", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "Only POST method is supported", http.StatusMethodNotAllowed)
			return
		}
		pulses.Reset()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/captures", func(w http.ResponseWriter, req *http.Request) {
		handleCaptureList(r, w, req)
	})

	mux.HandleFunc("/captures/{uuid}", func(w http.ResponseWriter, req *http.Request) {
		handleCapture(r, w, req)
	})

	port := "8080"
	fmt.Printf("Starting server on port %s...\n", port)
	server := http.Server{Addr: ":" + port, Handler: mux}
	if err := server.ListenAndServe(); err != nil {
		fmt.Printf("Error starting server: %v\n", err)
		os.Exit(1)
	}
}

func handleFrame(p *display.Panel, w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodDelete {
		if err := p.Clear(); err != nil {
			slog.Error("Couldn't clear panel", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}
	if req.Method != http.MethodPost {
		http.Error(w, "Only POST or DELETE methods are supported", http.StatusMethodNotAllowed)
		return
	}

	img, _, err := image.Decode(req.Body)
	defer req.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := render.ToPackedBitmap(render.ForPanel(img, panelWidth))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := p.ShowFrame(b); err != nil {
		slog.Error("Couldn't show frame", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func handleCaptureList(r *capture.Repository, w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Only GET method is supported", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := r.ListSessions()
	if err != nil {
		slog.Error("Couldn't list sessions", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJson(w, model.FromSessions(sessions))
}

func handleCapture(r *capture.Repository, w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Only GET method is supported", http.StatusMethodNotAllowed)
		return
	}

	u, err := uuid.Parse(req.PathValue("uuid"))
	if err != nil {
		http.Error(w, "Invalid session uuid", http.StatusBadRequest)
		return
	}

	session, err := r.GetSession(u)
	if err != nil {
		slog.Error("Couldn't fetch session", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "No such session", http.StatusNotFound)
		return
	}

	samples, err := r.SamplesForSession(session.Id)
	if err != nil {
		slog.Error("Couldn't fetch samples", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJson(w, model.FromSamples(session, samples))
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Couldn't encode response", "error", err)
	}
}
