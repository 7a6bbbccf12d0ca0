package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "companion server URL")
	conversation := flag.String("conversation", "cli:default", "conversation ID")
	flag.Parse()

	fmt.Println("Companion CLI")
	fmt.Printf("Server: %s | Conversation: %s\n", *server, *conversation)
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /state, /session, /memories, /monologues")
	fmt.Println("---")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		case "/state":
			dump(*server, "/api/state")
		case "/session":
			dump(*server, "/api/session?conversation_id="+*conversation)
		case "/memories":
			dump(*server, "/api/memories/episodic")
		case "/monologues":
			dump(*server, "/api/monologues")
		default:
			sendTurn(*server, *conversation, input)
		}
	}
}

func sendTurn(server, conversation, input string) {
	body, _ := json.Marshal(map[string]string{
		"conversation_id": conversation,
		"input":           input,
	})
	resp, err := http.Post(server+"/api/turn", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var out struct {
		Reply string `json:"reply"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "error: bad response: %v\n", err)
		return
	}
	if out.Error != "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", out.Error)
		return
	}
	fmt.Println(out.Reply)
}

func dump(server, path string) {
	resp, err := http.Get(server + path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var pretty bytes.Buffer
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if err := json.Indent(&pretty, raw.Bytes(), "", "  "); err != nil {
		fmt.Println(raw.String())
		return
	}
	fmt.Println(pretty.String())
}
