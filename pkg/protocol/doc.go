// Package protocol is the frame codec spoken over the live game socket.
// One JSON object per text frame, tagged by "type".
//
// Client -> Server
// subscribe:
//   game_id: number
//
// unsubscribe:
//   game_id: number
//
// Server -> Client
// snapshot (sent once per subscribe, replaces anything the client holds):
//   game_id: number
//   version: number
//   phase: "idle" | "question_live" | "revealed" | "leaderboard_shown"
//   round_id: number
//   round_number: number
//   question: Question // omitted when no question is live
//   standings: Standing[]
//
// phase_update:
//   game_id: number
//   phase: string
//   round_id: number // present when the round changed
//
// question:
//   game_id: number
//   round_id: number
//   question: { id, text, media_url?, order, answer? } // answer only on host sockets
//
// answer_reveal:
//   game_id: number
//   question_id: number
//   answer: string
//
// leaderboard_update:
//   game_id: number
//   standings: { team_id, team_name, points }[]
//
// error:
//   error: string
package protocol
