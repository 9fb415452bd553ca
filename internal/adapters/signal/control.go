package signal

import "github.com/dkeye/Gambit/internal/app/orch"

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	ctl.Orch.Send(c, orch.Pong())
}
