package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hackstorm/internal/model"
)

type CommandsSuite struct {
	suite.Suite
}

func TestCommandsSuite(t *testing.T) {
	suite.Run(t, new(CommandsSuite))
}

func (s *CommandsSuite) TestDecodeEveryAction() {
	tests := []struct {
		frame string
		want  Command
	}{
		{`{"action":"register","username":"neo","password":"matrix1"}`, Register{Username: "neo", Password: "matrix1"}},
		{`{"action":"login","username":"neo","password":"matrix1"}`, Login{Username: "neo", Password: "matrix1"}},
		{`{"action":"online"}`, Online{}},
		{`{"action":"chat","message":"hello"}`, Chat{Message: "hello"}},
		{`{"action":"chat_history","count":5}`, ChatHistory{Count: 5}},
		{`{"action":"leaderboard","sort_by":"money","limit":3}`, Leaderboard{SortBy: "money", Limit: 3}},
		{`{"action":"profile","target":"trinity"}`, Profile{Target: "trinity"}},
		{`{"action":"info"}`, Info{}},
		{`{"action":"ping"}`, Ping{}},
		{`{"action":"notify","target":"trinity","message":"hi"}`, Notify{Target: "trinity", Message: "hi"}},
		{`{"action":"stats","stats":{"commands_issued":3}}`, AddStats{Stats: model.Stats{CommandsIssued: 3}}},
	}

	for _, tt := range tests {
		cmd, err := Decode([]byte(tt.frame))
		s.Require().NoError(err, tt.frame)
		s.Equal(tt.want, cmd, tt.frame)
		s.Equal(tt.want.Action(), cmd.Action())
	}
}

func (s *CommandsSuite) TestDecodeSaveKeepsDocumentVerbatim() {
	cmd, err := Decode([]byte(`{"action":"save","username":"neo","game_state":{"z":1,"a":[true,null]}}`))
	s.Require().NoError(err)

	save, ok := cmd.(Save)
	s.Require().True(ok)
	s.Equal("neo", save.Username)
	s.Equal(`{"z":1,"a":[true,null]}`, string(save.GameState))
	s.Nil(save.Stats)
}

func (s *CommandsSuite) TestDecodeLogoutWithoutState() {
	cmd, err := Decode([]byte(`{"action":"logout"}`))
	s.Require().NoError(err)
	s.True(cmd.(Logout).GameState.IsEmpty())
}

func (s *CommandsSuite) TestDecodeRejectsMalformed() {
	for _, frame := range []string{`not json`, `[1,2]`, `{"action":`, `null`, `{}`, `{"username":"neo"}`} {
		_, err := Decode([]byte(frame))
		s.ErrorIs(err, ErrInvalidFrame, frame)
	}
}

func (s *CommandsSuite) TestDecodeRejectsInvalidUTF8() {
	_, err := Decode([]byte("{\"action\":\"chat\",\"message\":\"\xff\xfe\"}"))
	s.ErrorIs(err, ErrInvalidFrame)
}

func (s *CommandsSuite) TestDecodeUnknownAction() {
	_, err := Decode([]byte(`{"action":"self_destruct"}`))
	s.ErrorIs(err, ErrUnknownAction)
}

func (s *CommandsSuite) TestDecodeWrongFieldType() {
	_, err := Decode([]byte(`{"action":"chat_history","count":"lots"}`))
	s.ErrorIs(err, ErrInvalidRequest)
}

func (s *CommandsSuite) TestEncodeCommandRoundTrip() {
	stats := model.Stats{MissionsCompleted: 2}
	cmds := []Command{
		Login{Username: "neo", Password: "matrix1"},
		Save{GameState: model.GameState(`{"money":500}`), Stats: &stats},
		Online{},
		Leaderboard{SortBy: "level"},
	}
	for _, cmd := range cmds {
		frame, err := EncodeCommand(cmd)
		s.Require().NoError(err)
		s.Equal(byte('\n'), frame[len(frame)-1])
		s.True(json.Valid(frame))

		decoded, err := Decode(frame[:len(frame)-1])
		s.Require().NoError(err)
		s.Equal(cmd, decoded)
	}
}

func (s *CommandsSuite) TestEncodeCommandActionFirst() {
	frame, err := EncodeCommand(Ping{})
	s.Require().NoError(err)
	s.Equal("{\"action\":\"ping\"}\n", string(frame))
}
