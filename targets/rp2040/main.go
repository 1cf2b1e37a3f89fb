//go:build rp2040

package main

import (
	"machine"
	"time"

	"trackcar/core"
	"trackcar/missions"
	"trackcar/protocol"
	"trackcar/targets/pio"
)

// Board wiring
const (
	btBaud     = 9600
	cameraBaud = 115200

	pinStandby = 15
	pinBuzzer  = 27

	pinShiftData  = machine.GPIO12
	pinShiftClock = machine.GPIO13 // latch is GPIO14
)

var (
	motorPins   = []core.PWMPin{8, 9, 10, 11}
	grayAddress = []core.GPIOPin{2, 3, 24}
	encoders    = []encoderPins{
		{machine.GPIO16, machine.GPIO17},
		{machine.GPIO18, machine.GPIO19},
		{machine.GPIO20, machine.GPIO21},
		{machine.GPIO22, machine.GPIO23},
	}
)

// Target task ids
const (
	taskBluetooth = core.TaskUser + iota
	taskCamera
	taskRange
	taskHeading
	taskCalibration
	taskTelemetry
	taskDebug
)

const watchdogMS = 1000

type targetTask struct {
	id      core.TaskID
	name    string
	handler func()
	period  uint32
}

var (
	robot  *core.Robot
	link   *protocol.Link
	bt     *uartPort
	camera *uartPort
	camRx  *protocol.CameraReader

	loopPanics uint32
)

func main() {
	// A watchdog left running by the bootloader would reset us mid-init
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})

	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetLogLevel(core.LevelInfo)
	InitClock()

	if err := setup(); err != nil {
		// Without a robot there is nothing to run; keep reporting why
		for {
			core.Errorln("setup: " + err.Error())
			time.Sleep(time.Second)
		}
	}

	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: watchdogMS})
	machine.Watchdog.Start()

	robot.Tasks.Init(core.Millis())
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					robot.Shutdown("main loop panic")
				}
			}()
			UpdateSystemTime()
			robot.Poll(core.Millis())
		}()
		machine.Watchdog.Update()
		time.Sleep(100 * time.Microsecond)
	}
}

func setup() error {
	var err error
	gpio := NewRPGPIODriver()

	// Direction byte: PIO when a state machine is free, bit-banged otherwise
	var latch core.DirectionLatch
	if sp, perr := pio.NewShiftPIO(0, 0, pinShiftData, pinShiftClock); perr == nil {
		latch = sp
	} else {
		core.Warnln("shift register: " + perr.Error() + ", using gpio")
		latch, err = pio.NewGPIOShifter(gpio, core.GPIOPin(pinShiftData), core.GPIOPin(pinShiftClock), core.GPIOPin(pinShiftClock+1))
		if err != nil {
			return err
		}
	}

	cfg := core.DefaultCarConfig()
	motors, err := core.NewWheelMotors(NewRP2040PWMDriver(), motorPins[:cfg.Wheels], latch, gpio, pinStandby, cfg.MaxPWM)
	if err != nil {
		return err
	}

	enc := core.NewEncoderCounter(1, 3)
	if err := attachEncoders(enc, encoders[:cfg.Wheels]); err != nil {
		return err
	}

	gray, err := core.NewAnalogLine(NewRPAdcDriver(), core.AnalogLineConfig{
		Channels:    []core.ADCChannel{0},
		GPIO:        gpio,
		AddressPins: grayAddress,
	})
	if err != nil {
		return err
	}
	line := core.NewLineArray(func() uint16 {
		gray.Sample()
		return gray.Bitmask()
	})

	// IMU and ToF are optional: the car turns by odometry and follows
	// without distance control when they are missing
	hw := core.Hardware{Motor: motors, Encoder: enc, Line: line}
	var gyro *Gyro
	var rng *Range
	if bus, berr := initSensorBus(); berr == nil {
		if gyro, err = NewGyro(bus); err == nil {
			hw.Heading = gyro
		} else {
			core.Warnln("imu: " + err.Error())
		}
		if rng, err = NewRange(bus); err == nil {
			hw.Range = rng
		} else {
			core.Warnln("tof: " + err.Error())
		}
	} else {
		core.Warnln("i2c: " + berr.Error())
	}

	if bt, err = newUARTPort(machine.UART0, btBaud, machine.UART0_TX_PIN, machine.UART0_RX_PIN); err != nil {
		return err
	}
	if camera, err = newUARTPort(machine.UART1, cameraBaud, machine.GPIO4, machine.GPIO5); err != nil {
		return err
	}
	link = protocol.NewLink(bt, protocol.PacketDirToHost, nil)

	timers := &core.TimerQueue{}
	buzzer, err := core.GPIOOutput(gpio, pinBuzzer)
	if err != nil {
		return err
	}
	beeper := core.NewBeeper(buzzer, timers)
	hw.Alert = beeper

	robot, err = core.NewRobot(core.RobotParts{
		Config:   cfg,
		PIDs:     core.DefaultPIDSet(),
		Hardware: hw,
		Sender:   link,
		Timers:   timers,
	})
	if err != nil {
		return err
	}
	link.SetHandler(robot.HandlePacket)
	robot.SetReplier(link.Send)

	camState := &protocol.CameraState{}
	camRx = protocol.NewCameraReader(camState)
	n := missions.Register(missions.Env{
		Robot:    robot,
		Line:     line,
		Camera:   camState,
		CameraTx: camera.writeLine,
		Alert:    beeper,
		Calib:    gray,
	})
	core.Infoln("routes: " + itoa(n))

	tasks := []targetTask{
		{taskBluetooth, "bluetooth", bluetoothTask, 5},
		{taskCamera, "camera", cameraTask, 5},
		{taskCalibration, "calibration", gray.CalibrationTask, 10},
		{taskTelemetry, "telemetry", telemetryTask, 500},
		{taskDebug, "debug", debugTask, 500},
	}
	if rng != nil {
		tasks = append(tasks, targetTask{taskRange, "tof", func() { rng.Task(core.Millis()) }, 5})
	}
	if gyro != nil {
		tasks = append(tasks, targetTask{taskHeading, "imu", gyro.Task, 10})
	}
	for _, t := range tasks {
		if err := robot.Tasks.Register(t.id, t.name, t.handler, t.period, true); err != nil {
			return err
		}
	}

	motors.Enable()
	beeper.Alert(1)
	return nil
}

func bluetoothTask() {
	bt.pump()
	link.Receive(bt.ring)
}

func cameraTask() {
	camera.pump()
	camRx.Receive(camera.ring)
}

func telemetryTask() {
	var buf [protocol.PayloadMax]byte
	t := robot.Telemetry()
	if err := link.Send(t.Encode(buf[:0])); err != nil {
		core.Debugln("telemetry: " + err.Error())
	}
}

func debugTask() {
	if core.GetLogLevel() < core.LevelDebug {
		return
	}
	s := link.Stats()
	core.Debugln("link rx=" + itoa(int(s.Received)) + " tx=" + itoa(int(s.Sent)) +
		" crc=" + itoa(int(s.CRCErrors)) + " dropped=" + itoa(int(bt.ring.Dropped())))
	c := camRx.Stats()
	core.Debugln("camera ok=" + itoa(int(c.OK)) + " bad=" + itoa(int(c.InvalidFormat+c.InvalidLength+c.Overflow)))
	core.Debugln("mode=" + robot.Car.Mode().String() + " cursor=" + itoa(robot.Mission.Cursor()) +
		" panics=" + itoa(int(loopPanics)))
}

// itoa avoids strconv on the target
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	negative := i < 0
	if negative {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if negative {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
