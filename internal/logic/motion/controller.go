package motion

import (
	"fmt"

	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/hw/motor"
	"github.com/cjeanneret/RoverGo/internal/logic/control"
)

// Controller drives the left/right motor pair.
// It's an intermediate layer between the control laws (line following,
// wall following) and the H-bridge outputs.
type Controller struct {
	left  *motor.Motor
	right *motor.Motor
}

func NewController(left, right *motor.Motor) *Controller {
	return &Controller{
		left:  left,
		right: right,
	}
}

// Drive writes both motors, left first. It is fire-and-forget: nothing is
// read back from the outputs.
func (c *Controller) Drive(cmd control.Command) error {
	debug.Command(cmd.Left, cmd.Right)
	if err := c.left.Drive(cmd.Left.Direction, cmd.Left.Magnitude); err != nil {
		return fmt.Errorf("drive left: %w", err)
	}
	if err := c.right.Drive(cmd.Right.Direction, cmd.Right.Magnitude); err != nil {
		return fmt.Errorf("drive right: %w", err)
	}
	return nil
}

// Stop brakes both motors. Both are attempted even if the first fails.
func (c *Controller) Stop() error {
	errL := c.left.Stop()
	errR := c.right.Stop()
	if errL != nil {
		return fmt.Errorf("stop left: %w", errL)
	}
	if errR != nil {
		return fmt.Errorf("stop right: %w", errR)
	}
	return nil
}
