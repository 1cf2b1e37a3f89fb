package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/urfave/cli"

	"trackcar/config"
	"trackcar/core"
	"trackcar/host/canbus"
	"trackcar/host/link"
	"trackcar/host/serial"
	"trackcar/missions"
	"trackcar/protocol"
	"trackcar/sim"
)

func main() {
	app := cli.NewApp()
	app.Name = "carctl"
	app.Usage = "drive the track car over bluetooth, on the simulator or on a CAN bench"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "JSON car configuration"},
		cli.StringFlag{Name: "port, p", Usage: "bluetooth serial device (overrides the config)"},
		cli.IntFlag{Name: "baud", Usage: "baud rate (overrides the config)"},
	}
	app.Commands = []cli.Command{
		{Name: "info", Usage: "print the car's identify dictionary", Action: withClient(info)},
		{Name: "routes", Usage: "list the car's routes", Action: withClient(listRoutes)},
		{Name: "start", Usage: "start a route", ArgsUsage: "<route>", Action: withRoute(func(c *link.Client, i int) error { return c.Start(i) })},
		{Name: "select", Usage: "select a route without starting it", ArgsUsage: "<route>", Action: withRoute(func(c *link.Client, i int) error { return c.Select(i) })},
		{Name: "stop", Usage: "abort the running mission", Action: withClient(func(c *link.Client, _ *cli.Context) error { return c.Stop() })},
		{Name: "estop", Usage: "shut the car down until cleared", Action: withClient(func(c *link.Client, _ *cli.Context) error { return c.EmergencyStop() })},
		{Name: "clear", Usage: "leave the shutdown state", Action: withClient(func(c *link.Client, _ *cli.Context) error { return c.ClearShutdown() })},
		{Name: "byte", Usage: "send one byte to the missions", ArgsUsage: "<char|number>", Action: withClient(sendByte)},
		{Name: "speed", Usage: "set the track speed in cm/s", ArgsUsage: "<cm/s>", Action: withClient(setSpeed)},
		{Name: "marks", Usage: "set the stop-mark sample count", ArgsUsage: "<n>", Action: withClient(setMarks)},
		{Name: "follow", Usage: "switch range following", ArgsUsage: "on|off", Action: withClient(setFollow)},
		{Name: "ping", Usage: "measure the link round trip", Action: withClient(ping)},
		{Name: "monitor", Usage: "print telemetry until interrupted", Action: withClient(monitor)},
		{
			Name:      "sim",
			Usage:     "run a route on the simulator",
			ArgsUsage: "<route>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "no-imu", Usage: "turn by odometry"},
				cli.IntFlag{Name: "limit", Value: 60000, Usage: "simulated time limit in ms"},
			},
			Action: runSim,
		},
		{
			Name:      "can-run",
			Usage:     "run a route against a SocketCAN bench rig",
			ArgsUsage: "<route>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "iface", Usage: "CAN interface (overrides the config)"},
				cli.IntFlag{Name: "limit", Value: 60000, Usage: "time limit in ms"},
			},
			Action: runCAN,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.GlobalString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func identify(c *link.Client) (*link.Dictionary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Identify(ctx)
}

// routeIndex accepts an index or a route name; names are looked up in the
// car's dictionary
func routeIndex(c *link.Client, arg string) (int, error) {
	if arg == "" {
		return 0, fmt.Errorf("route required")
	}
	if i, err := strconv.Atoi(arg); err == nil {
		return i, nil
	}
	d, err := identify(c)
	if err != nil {
		return 0, err
	}
	i, ok := d.RouteIndex(arg)
	if !ok {
		return 0, fmt.Errorf("route %q: %w", arg, core.ErrUnknownRoute)
	}
	return i, nil
}

func info(c *link.Client, ctx *cli.Context) error {
	d, err := identify(c)
	if err != nil {
		return err
	}
	fmt.Printf("version %s\n", d.Version)
	keys := make([]string, 0, len(d.Config))
	for k := range d.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-16s %s\n", k, d.Config[k])
	}
	fmt.Printf("%d commands, %d responses, %d routes\n", len(d.Commands), len(d.Responses), len(d.Routes))
	return nil
}

func listRoutes(c *link.Client, ctx *cli.Context) error {
	d, err := identify(c)
	if err != nil {
		return err
	}
	for i, r := range d.Routes {
		fmt.Printf("%2d  %s\n", i, r)
	}
	return nil
}

func dial(ctx *cli.Context) (*link.Client, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	sc := serial.DefaultConfig(cfg.Link.Port)
	if p := ctx.GlobalString("port"); p != "" {
		sc.Device = p
	}
	sc.Baud = cfg.Link.Baud
	if b := ctx.GlobalInt("baud"); b != 0 {
		sc.Baud = b
	}
	return link.Dial(sc)
}

func withClient(fn func(c *link.Client, ctx *cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		c, err := dial(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(c, ctx)
	}
}

func withRoute(fn func(c *link.Client, route int) error) func(*cli.Context) error {
	return withClient(func(c *link.Client, ctx *cli.Context) error {
		i, err := routeIndex(c, ctx.Args().First())
		if err != nil {
			return err
		}
		return fn(c, i)
	})
}

func sendByte(c *link.Client, ctx *cli.Context) error {
	arg := ctx.Args().First()
	switch {
	case arg == "":
		return fmt.Errorf("byte required")
	case len(arg) == 1:
		return c.SendByte(arg[0])
	}
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return fmt.Errorf("byte %q: %w", arg, err)
	}
	return c.SendByte(byte(v))
}

func setSpeed(c *link.Client, ctx *cli.Context) error {
	v, err := strconv.ParseFloat(ctx.Args().First(), 32)
	if err != nil {
		return fmt.Errorf("speed: %w", err)
	}
	return c.SetTrackSpeed(float32(v))
}

func setMarks(c *link.Client, ctx *cli.Context) error {
	n, err := strconv.Atoi(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("marks: %w", err)
	}
	return c.SetStopMarks(n)
}

func setFollow(c *link.Client, ctx *cli.Context) error {
	switch ctx.Args().First() {
	case "on":
		return c.SetFollow(true)
	case "off":
		return c.SetFollow(false)
	}
	return fmt.Errorf("follow: expected on or off")
}

func ping(c *link.Client, ctx *cli.Context) error {
	cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rtt, err := c.Ping(cctx)
	if err != nil {
		return err
	}
	fmt.Printf("pong in %v\n", rtt)
	return nil
}

func monitor(c *link.Client, ctx *cli.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	for {
		select {
		case t := <-c.Telemetry():
			printTelemetry(t)
		case b := <-c.Bytes():
			fmt.Printf("byte %q\n", b)
		case reason := <-c.Shutdowns():
			fmt.Printf("shutdown: %s\n", reason)
		case <-c.Done():
			return c.Err()
		case <-sig:
			st := c.Stats()
			fmt.Printf("rx=%d tx=%d crc=%d framing=%d dup=%d\n", st.Received, st.Sent, st.CRCErrors, st.FramingErrors, st.Duplicates)
			return nil
		}
	}
}

func printTelemetry(t protocol.Telemetry) {
	fmt.Printf("%8dms %-8s action=%d loop=%d run=%v mileage=%.1fcm yaw=%.1f line=%08b speeds=",
		t.Uptime, core.Mode(t.Mode), t.Cursor, t.Loop, t.Running,
		float32(t.Mileage10)/10, float32(t.Yaw10)/10, t.Bitmask)
	for i := 0; i < int(t.Wheels); i++ {
		fmt.Printf(" %.1f", float32(t.Speed10[i])/10)
	}
	fmt.Println()
}

// simCourse is a straight line ahead of the car with a stop mark, enough
// for the line and lap routes
var simCourse = []sim.Segment{
	{X: -10, Y: 0, Heading: 0, Length: 400, Marks: []float64{150, 300}},
}

func runSim(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	s, err := sim.New(sim.Options{
		Config:   cfg,
		Heading:  !ctx.Bool("no-imu"),
		Segments: simCourse,
	})
	if err != nil {
		return err
	}
	name := ctx.Args().First()
	if i, err := strconv.Atoi(name); err == nil {
		routes := s.Robot.Routes()
		if i < 0 || i >= len(routes) {
			return fmt.Errorf("route %d: %w", i, core.ErrUnknownRoute)
		}
		name = routes[i].Name
	}

	runErr := s.RunMission(name, uint32(ctx.Int("limit")))
	x, y, h := s.Plant.Pose()
	fmt.Printf("route %s: %dms, pose (%.1f, %.1f) heading %.1f\n", name, s.Now(), x, y, h)
	fmt.Printf("modes %v\n", s.Modes())
	if len(s.Sent) > 0 {
		fmt.Printf("sent %q\n", s.Sent)
	}
	return runErr
}

func runCAN(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	iface := cfg.CAN.Interface
	if v := ctx.String("iface"); v != "" {
		iface = v
	}

	bg, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	bus, err := canbus.Dial(bg, iface)
	if err != nil {
		return err
	}
	defer bus.Close()

	motors := canbus.NewMotorBridge(bus, cfg.CAN.MotorID)
	feed := canbus.NewEncoderFeed(cfg.CAN.EncoderID)
	go feed.Run(bg, bus)

	core.SetDebugWriter(func(s string) { fmt.Print(s) })
	robot, err := core.NewRobot(core.RobotParts{
		Config: cfg.CarConfig(),
		PIDs:   cfg.PIDs(),
		Hardware: core.Hardware{
			Motor:   motors,
			Encoder: feed,
			Line:    core.NewLineArray(func() uint16 { return 0 }),
			Alert:   core.AlertFunc(func(n int) { fmt.Printf("beep x%d\n", n) }),
		},
		Sender: core.SenderFunc(func(b byte) error {
			fmt.Printf("byte %q\n", b)
			return nil
		}),
	})
	if err != nil {
		return err
	}
	missions.Register(missions.Env{Robot: robot})

	arg := ctx.Args().First()
	i, ok := robot.RouteIndex(arg)
	if !ok {
		if i, err = strconv.Atoi(arg); err != nil || i < 0 || i >= len(robot.Routes()) {
			return fmt.Errorf("route %q not available on the bench: %w", arg, core.ErrUnknownRoute)
		}
	}

	motors.Enable()
	defer motors.Disable()

	start := time.Now()
	core.TimerInit()
	robot.Tasks.Init(core.Millis())
	if err := robot.StartRoute(i); err != nil {
		return err
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	limit := time.Duration(ctx.Int("limit")) * time.Millisecond
	for robot.Mission.Running() {
		select {
		case <-bg.Done():
			robot.StopMission()
			return bg.Err()
		case now := <-ticker.C:
			if now.Sub(start) > limit {
				robot.StopMission()
				return fmt.Errorf("route still running after %v", limit)
			}
			core.AdvanceMillis(1)
			robot.Poll(core.Millis())
		}
	}
	fmt.Printf("done in %v, %d frames out, %d encoder frames in\n", time.Since(start).Round(time.Millisecond), motors.Sent(), feed.Frames())
	return motors.Err()
}
