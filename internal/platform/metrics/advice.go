package metrics

// Advice lists tuning suggestions derived from a Snapshot.
func Advice(snapshot map[string]interface{}) []string {
	notes := []string{}

	if tick, ok := snapshot["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 100 {
			notes = append(notes, "Tick latency exceeds 100ms - lengthen GANG_TICK_INTERVAL or use the stress profile")
		}
	}

	if events, ok := snapshot["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			notes = append(notes, "Event write latency exceeds 50ms - increase DB_MAX_OPEN_CONNS")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			notes = append(notes, "Event write errors detected - check the database")
		}
	}

	if ws, ok := snapshot["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			notes = append(notes, "WebSocket errors detected - increase GANG_CLIENT_BUFFER")
		}
	}

	return notes
}
