// Package main - agitator
// Load generator: concurrent agents spam conversational turns over the
// WebSocket to exercise the interaction path.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	Members        int
	Gangs          int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Setup          bool
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Failures         int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

var lines = []string{
	"I will kill you if you come near my corner again",
	"thanks brother, I trust you",
	"you are a rat and a coward",
	"we could help each other, join us",
	"nice weather in the yard today",
	"my family protects its own, friend",
	"stab him before he talks",
	"respect, you kept your word",
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 20, "Number of concurrent clients")
	members := flag.Int("members", 40, "Number of simulated members")
	gangs := flag.Int("gangs", 4, "Gangs members are spread over")
	interval := flag.Duration("interval", 200*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	setup := flag.Bool("setup", true, "Enable the simulation and assign members first")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		Members:        *members,
		Gangs:          *gangs,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Setup:          *setup,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - yard load generator")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Members: %d over %d gangs\n", config.Members, config.Gangs)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	if config.Members < 2 {
		log.Fatalf("need at least 2 members, got %d", config.Members)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	if config.Setup {
		if err := setupYard(ctx, config); err != nil {
			log.Fatalf("setup failed: %v", err)
		}
	}

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func memberID(i int) string {
	return fmt.Sprintf("M%03d", i)
}

// setupYard enables the simulation and spreads members over the gangs,
// leaving every fifth member independent.
func setupYard(ctx context.Context, config Config) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	commands := []string{"enable"}
	for i := 0; i < config.Members; i++ {
		gang := ""
		if i%5 != 4 && config.Gangs > 0 {
			gang = fmt.Sprintf("GANG_%d", i%config.Gangs+1)
		}
		commands = append(commands, fmt.Sprintf("assign %s %s", memberID(i), gang))
	}
	for _, cmd := range commands {
		if err := conn.WriteJSON(map[string]string{"type": "command", "command": cmd}); err != nil {
			return err
		}
		// stay above the server's per-client action gap
		time.Sleep(60 * time.Millisecond)
	}
	return nil
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%d Recv=%d Failures=%d Errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Failures),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			var msg struct {
				Type    string `json:"type"`
				Payload struct {
					Failure json.RawMessage `json:"failure"`
				} `json:"payload"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			if msg.Type == "interaction_result" && len(msg.Payload.Failure) > 0 && string(msg.Payload.Failure) != "null" {
				atomic.AddInt64(&stats.Failures, 1)
			}
		}
	}()

	if err := conn.WriteJSON(map[string]string{"type": "conversation_start"}); err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.WriteJSON(map[string]string{"type": "conversation_end"})

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action := randomInteraction(config.Members)
			start := time.Now()

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func randomInteraction(members int) map[string]interface{} {
	speaker := rand.IntN(members)
	listener := rand.IntN(members - 1)
	if listener >= speaker {
		listener++
	}
	return map[string]interface{}{
		"type": "interaction",
		"interaction": map[string]interface{}{
			"speaker_id":  memberID(speaker),
			"listener_id": memberID(listener),
			"text":        lines[rand.IntN(len(lines))],
			"affinity":    rand.Float64(),
		},
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	fails := atomic.LoadInt64(&stats.Failures)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Engine Failures:   %d\n", fails)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	if len(stats.Latencies) > 0 {
		var total time.Duration
		lo, hi := stats.Latencies[0], stats.Latencies[0]
		for _, l := range stats.Latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		fmt.Printf("\nLatency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(stats.Latencies)))
		fmt.Printf("  Max: %v\n", hi)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("PASSED: system handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("WARNING: some errors detected")
	default:
		fmt.Println("FAILED: high error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"engine_failures":    fails,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"members":  config.Members,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	os.WriteFile("stress_test_results.json", jsonData, 0644)
	fmt.Println("\nResults saved to stress_test_results.json")
}
