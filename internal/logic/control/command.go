package control

import (
	"fmt"

	"github.com/cjeanneret/RoverGo/internal/hw/motor"
)

// MotorCommand is the request for one motor.
type MotorCommand struct {
	Direction motor.Direction
	Magnitude uint8
}

func (m MotorCommand) String() string {
	if m.Direction == motor.Brake {
		return "brake"
	}
	return fmt.Sprintf("%s %d", m.Direction, m.Magnitude)
}

// Forward returns a forward command of the given magnitude.
func Forward(magnitude uint8) MotorCommand {
	return MotorCommand{Direction: motor.Forward, Magnitude: magnitude}
}

// Reverse returns a reverse command of the given magnitude.
func Reverse(magnitude uint8) MotorCommand {
	return MotorCommand{Direction: motor.Reverse, Magnitude: magnitude}
}

// Brake returns a braking command.
func Brake() MotorCommand {
	return MotorCommand{Direction: motor.Brake}
}

// Command is the pair written to both motors in one actuation step.
type Command struct {
	Left  MotorCommand
	Right MotorCommand
}

// Decision tags which branch of a control law produced a command.
type Decision int

const (
	GoStraight Decision = iota
	TurnLeft
	TurnRight
	SharpTurn
	ForwardBias
)

func (d Decision) String() string {
	switch d {
	case GoStraight:
		return "straight"
	case TurnLeft:
		return "turn-left"
	case TurnRight:
		return "turn-right"
	case SharpTurn:
		return "sharp-turn"
	case ForwardBias:
		return "forward-bias"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}
