// Two-client smoke driver: creates a session, joins it, plays a scripted
// best-of-3 match against a live server and checks the progression engine
// agrees with the server's round results.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/game"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/match"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/pkg/types"
)

func main() {
	url := os.Getenv("RPS_SMOKE_URL")
	if url == "" {
		url = "ws://127.0.0.1:8080/ws"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	host := dial(ctx, url)
	defer host.Close(websocket.StatusNormalClosure, "done")
	guest := dial(ctx, url)
	defer guest.Close(websocket.StatusNormalClosure, "done")

	code := fmt.Sprintf("SMK%03d", rand.Intn(1000))

	send(ctx, host, types.ClientMessage{Type: types.MsgCreateSession, SessionID: code})
	waitFor(ctx, host, types.MsgSessionCreated)
	hostNum := waitFor(ctx, host, types.MsgParticipantNumber).PlayerNumber

	send(ctx, guest, types.ClientMessage{Type: types.MsgJoinSession, SessionID: code})
	guestNum := waitFor(ctx, guest, types.MsgParticipantNumber).PlayerNumber

	waitFor(ctx, host, types.MsgMatchStart)
	waitFor(ctx, guest, types.MsgMatchStart)
	log.Printf("matched: session=%s host=p%d guest=p%d", code, hostNum, guestNum)

	hostState := match.Start(match.NewState(match.BestOf(3)))
	guestState := match.Start(match.NewState(match.BestOf(3)))

	hostMoves := []game.Choice{game.Rock, game.Rock, game.Rock}
	guestMoves := []game.Choice{game.Scissors, game.Paper, game.Scissors}

	for i := 0; hostState.Phase != match.PhaseMatchOver; i++ {
		hostState = match.BeginRound(hostState)
		guestState = match.BeginRound(guestState)

		send(ctx, host, types.ClientMessage{
			Type: types.MsgSubmitChoice, SessionID: code,
			Choice: string(hostMoves[i]), PlayerNumber: hostNum,
		})
		send(ctx, guest, types.ClientMessage{
			Type: types.MsgSubmitChoice, SessionID: code,
			Choice: string(guestMoves[i]), PlayerNumber: guestNum,
		})

		hr := waitFor(ctx, host, types.MsgRoundResolved)
		gr := waitFor(ctx, guest, types.MsgRoundResolved)
		if hr.Result != gr.Result {
			log.Fatalf("round %d: host saw %s, guest saw %s", i+1, hr.Result, gr.Result)
		}
		log.Printf("round %d: moves=%v result=%s", i+1, hr.Moves, hr.Result)

		outcome := game.Outcome(hr.Result)
		_, hostState, _ = match.Apply(hostState, match.Relative(outcome, hostNum))
		_, guestState, _ = match.Apply(guestState, match.Relative(outcome, guestNum))
	}

	if hostState.Winner != match.WinnerSelf || guestState.Winner != match.WinnerOpponent {
		log.Fatalf("unexpected winners: host=%s guest=%s", hostState.Winner, guestState.Winner)
	}
	log.Printf("match over: host wins %d-%d", hostState.SelfWins, hostState.OpponentWins)

	send(ctx, host, types.ClientMessage{Type: types.MsgLeaveSession, SessionID: code})
	send(ctx, guest, types.ClientMessage{Type: types.MsgLeaveSession, SessionID: code})
	log.Println("smoke OK")
}

func dial(ctx context.Context, url string) *websocket.Conn {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func send(ctx context.Context, conn *websocket.Conn, msg types.ClientMessage) {
	payload, _ := json.Marshal(msg)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		log.Fatalf("write %s: %v", msg.Type, err)
	}
}

// waitFor reads until a message of the wanted type arrives, draining
// everything else.
func waitFor(ctx context.Context, conn *websocket.Conn, msgType string) types.ServerMessage {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Fatalf("waiting for %s: %v", msgType, err)
		}
		var sm types.ServerMessage
		if err := json.Unmarshal(data, &sm); err != nil {
			continue
		}
		if sm.Type == msgType {
			return sm
		}
		if sm.Type == types.MsgError {
			log.Fatalf("server error while waiting for %s: %s", msgType, sm.Error)
		}
	}
}
