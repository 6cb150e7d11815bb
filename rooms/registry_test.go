package rooms

import (
	"errors"
	"testing"
	"time"

	"recall-server/config"
	"recall-server/game"
	"recall-server/gameerrors"
)

// nopNotifier discards all engine notifications.
type nopNotifier struct{}

func (nopNotifier) GameStateUpdated(string, map[string]game.StateView) {}
func (nopNotifier) TurnStarted(string, string)                         {}
func (nopNotifier) RoundCompleted(string, game.FinalScores)            {}
func (nopNotifier) ActionResult(string, string, game.ActionResult)     {}

func testRegistry() *Registry {
	cfg := config.Defaults()
	reg := NewRegistry(cfg, nil)
	reg.SetTransport(nopNotifier{})
	return reg
}

func TestCreateRoomSeatsCreator(t *testing.T) {
	reg := testRegistry()
	room, err := reg.CreateRoom("p1", "Alice", game.PermissionPublic)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.CloseRoom(room.ID)

	if room.CreatorID != "p1" {
		t.Errorf("creator = %s, want p1", room.CreatorID)
	}
	got, ok := reg.RoomForPlayer("p1")
	if !ok || got.ID != room.ID {
		t.Error("creator should be tracked in the room")
	}
	ids := reg.MemberIDs(room.ID)
	if len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("members = %v, want [p1]", ids)
	}
}

func TestCreateRoomWhileSeatedRejected(t *testing.T) {
	reg := testRegistry()
	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)
	defer reg.CloseRoom(room.ID)

	if _, err := reg.CreateRoom("p1", "Alice", game.PermissionPrivate); !errors.Is(err, gameerrors.ErrRoomExists) {
		t.Errorf("expected ErrRoomExists, got %v", err)
	}
}

func TestJoinRoomErrors(t *testing.T) {
	reg := testRegistry()
	if _, err := reg.JoinRoom("missing", "p2", "Bob"); !errors.Is(err, gameerrors.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}

	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)
	defer reg.CloseRoom(room.ID)

	if _, err := reg.JoinRoom(room.ID, "p2", "Bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.JoinRoom(room.ID, "p2", "Bob"); !errors.Is(err, gameerrors.ErrRoomExists) {
		t.Errorf("rejoining while seated: expected ErrRoomExists, got %v", err)
	}

	reg.JoinRoom(room.ID, "p3", "Carol")
	reg.JoinRoom(room.ID, "p4", "Dan")
	if _, err := reg.JoinRoom(room.ID, "p5", "Eve"); !errors.Is(err, gameerrors.ErrRoomFull) {
		t.Errorf("expected ErrRoomFull, got %v", err)
	}
}

func TestJoinAfterStartRejected(t *testing.T) {
	reg := testRegistry()
	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)
	defer reg.CloseRoom(room.ID)
	reg.JoinRoom(room.ID, "p2", "Bob")

	if err := reg.StartMatch(room.ID, "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.JoinRoom(room.ID, "p3", "Carol"); !errors.Is(err, gameerrors.ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartMatchAuthorization(t *testing.T) {
	reg := testRegistry()
	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)
	defer reg.CloseRoom(room.ID)
	reg.JoinRoom(room.ID, "p2", "Bob")

	if err := reg.StartMatch(room.ID, "p2"); !errors.Is(err, gameerrors.ErrNotInRoom) {
		t.Errorf("non-creator start: expected ErrNotInRoom, got %v", err)
	}
	if err := reg.StartMatch(room.ID, "ghost"); !errors.Is(err, gameerrors.ErrNotInRoom) {
		t.Errorf("outsider start: expected ErrNotInRoom, got %v", err)
	}
}

func TestStartMatchRequiresMinPlayers(t *testing.T) {
	reg := testRegistry()
	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)
	defer reg.CloseRoom(room.ID)

	if err := reg.StartMatch(room.ID, "p1"); !errors.Is(err, gameerrors.ErrInsufficientPlayers) {
		t.Errorf("expected ErrInsufficientPlayers, got %v", err)
	}
}

func TestAddComputerFillsSeat(t *testing.T) {
	reg := testRegistry()
	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)
	defer reg.CloseRoom(room.ID)

	if err := reg.AddComputer(room.ID, "p2"); !errors.Is(err, gameerrors.ErrNotInRoom) {
		t.Errorf("non-creator add: expected ErrNotInRoom, got %v", err)
	}
	if err := reg.AddComputer(room.ID, "p1"); err != nil {
		t.Fatal(err)
	}

	// A bot satisfies the minimum player count.
	if err := reg.StartMatch(room.ID, "p1"); err != nil {
		t.Errorf("start with a bot seated: %v", err)
	}
}

func TestAddComputerRotatesProfiles(t *testing.T) {
	reg := testRegistry()
	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)
	defer reg.CloseRoom(room.ID)

	reg.AddComputer(room.ID, "p1")
	reg.AddComputer(room.ID, "p1")
	reg.AddComputer(room.ID, "p1")

	profiles := reg.cfg.AIProfiles
	for i, bot := range room.bots {
		want := profiles[i%len(profiles)].Name
		if bot.Name != want {
			t.Errorf("bot %d profile = %s, want %s", i, bot.Name, want)
		}
	}
	if err := reg.AddComputer(room.ID, "p1"); !errors.Is(err, gameerrors.ErrRoomFull) {
		t.Errorf("expected ErrRoomFull at capacity, got %v", err)
	}
}

func TestListPublicHidesPrivateAndStarted(t *testing.T) {
	reg := testRegistry()
	pub, _ := reg.CreateRoom("p1", "Alice", game.PermissionPublic)
	priv, _ := reg.CreateRoom("p2", "Bob", game.PermissionPrivate)
	defer reg.CloseRoom(pub.ID)
	defer reg.CloseRoom(priv.ID)

	list := reg.ListPublic()
	if len(list) != 1 || list[0].ID != pub.ID {
		t.Fatalf("list = %v, want only the public room", list)
	}
	if list[0].CreatedAt == 0 {
		t.Error("summary should carry the creation time")
	}

	reg.JoinRoom(pub.ID, "p3", "Carol")
	reg.StartMatch(pub.ID, "p1")
	if len(reg.ListPublic()) != 0 {
		t.Error("started rooms should not be listed")
	}
}

func TestLeaveRoomTearsDownEmptyRoom(t *testing.T) {
	reg := testRegistry()
	room, _ := reg.CreateRoom("p1", "Alice", game.PermissionPrivate)

	reg.LeaveRoom("p1")
	if _, ok := reg.Get(room.ID); ok {
		t.Error("room with no humans left should be closed")
	}
	if _, ok := reg.RoomForPlayer("p1"); ok {
		t.Error("player mapping should be cleared")
	}

	select {
	case <-room.Game.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("closed room's game loop did not stop")
	}
}
