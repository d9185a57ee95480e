package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
)

// overrideLexer tokenizes the override language:
//
//	pin RESET_N = IOR8 mode=OpenDrain level=high;
//	strapping RESET { pin RESET_N level=low; }
//	spi BOOTSTRAP = SPI0 bits_per_sec=1000000;
//	i2c SENSORS = I2C1;
//	uart CONSOLE = UART0 baudrate=115200;
var overrideLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Word", Pattern: `[A-Za-z0-9_][A-Za-z0-9_.\-]*`},
	{Name: "Punct", Pattern: `[=;{}]`},
})

type overrideFile struct {
	Statements []*overrideStmt `@@*`
}

type overrideStmt struct {
	Pin       *overrideDecl      `  "pin" @@`
	Strapping *overrideStrapping `| "strapping" @@`
	SPI       *overrideDecl      `| "spi" @@`
	I2C       *overrideDecl      `| "i2c" @@`
	UART      *overrideDecl      `| "uart" @@`
}

type overrideDecl struct {
	Pos     lexer.Position
	Name    string          `@Word`
	AliasOf string          `( "=" @Word )?`
	Attrs   []*overrideAttr `@@* ";"`
}

type overrideStrapping struct {
	Pos  lexer.Position
	Name string          `@Word "{"`
	Pins []*overrideDecl `( "pin" @@ )* "}" ";"?`
}

type overrideAttr struct {
	Pos   lexer.Position
	Key   string `@Word "="`
	Value string `@Word`
}

var overrideParser = participle.MustBuild[overrideFile](
	participle.Lexer(overrideLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.CaseInsensitive("Word"),
	participle.UseLookahead(2),
)

// ParseOverrides turns override statements into a single fragment. Each
// source may hold several statements; a missing final ";" is tolerated so
// that one-statement command line arguments stay short.
func ParseOverrides(sources ...string) (*File, error) {
	var b strings.Builder
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		b.WriteString(src)
		if !strings.HasSuffix(src, ";") && !strings.HasSuffix(src, "}") {
			b.WriteByte(';')
		}
		b.WriteByte('\n')
	}

	ast, err := overrideParser.ParseString("override", b.String())
	if err != nil {
		return nil, fmt.Errorf("config: override: %w", err)
	}

	f := &File{Source: "override"}
	for _, st := range ast.Statements {
		switch {
		case st.Pin != nil:
			pin, err := st.Pin.pin()
			if err != nil {
				return nil, err
			}
			f.Pins = append(f.Pins, pin)
		case st.Strapping != nil:
			s := Strapping{Name: st.Strapping.Name}
			for _, d := range st.Strapping.Pins {
				if d.AliasOf != "" {
					return nil, fmt.Errorf("config: override %s: alias not allowed inside strapping %s", d.Pos, s.Name)
				}
				pin, err := d.pin()
				if err != nil {
					return nil, err
				}
				s.Pins = append(s.Pins, pin)
			}
			f.Strappings = append(f.Strappings, s)
		case st.SPI != nil:
			spi := SPI{Name: st.SPI.Name, AliasOf: st.SPI.AliasOf}
			for _, a := range st.SPI.Attrs {
				if strings.ToLower(a.Key) != "bits_per_sec" {
					return nil, a.unknown("spi")
				}
				v, err := a.uint32()
				if err != nil {
					return nil, err
				}
				spi.BitsPerSec = &v
			}
			f.SPI = append(f.SPI, spi)
		case st.I2C != nil:
			if len(st.I2C.Attrs) > 0 {
				return nil, st.I2C.Attrs[0].unknown("i2c")
			}
			f.I2C = append(f.I2C, I2C{Name: st.I2C.Name, AliasOf: st.I2C.AliasOf})
		case st.UART != nil:
			u := UART{Name: st.UART.Name, AliasOf: st.UART.AliasOf}
			for _, a := range st.UART.Attrs {
				switch strings.ToLower(a.Key) {
				case "baudrate":
					v, err := a.uint32()
					if err != nil {
						return nil, err
					}
					u.Baudrate = &v
				case "parity":
					u.Parity = a.Value
				default:
					return nil, a.unknown("uart")
				}
			}
			f.UARTs = append(f.UARTs, u)
		}
	}
	return f, nil
}

func (d *overrideDecl) pin() (Pin, error) {
	pin := Pin{Name: d.Name, AliasOf: d.AliasOf}
	for _, a := range d.Attrs {
		switch strings.ToLower(a.Key) {
		case "mode":
			m, err := gpio.ParsePinMode(a.Value)
			if err != nil {
				return Pin{}, fmt.Errorf("config: override %s: %w", a.Pos, err)
			}
			pin.Mode = &m
		case "level":
			l, err := ParseLevel(a.Value)
			if err != nil {
				return Pin{}, fmt.Errorf("config: override %s: %w", a.Pos, err)
			}
			pin.Level = &l
		case "pull_mode", "pull":
			p, err := gpio.ParsePullMode(a.Value)
			if err != nil {
				return Pin{}, fmt.Errorf("config: override %s: %w", a.Pos, err)
			}
			pin.PullMode = &p
		default:
			return Pin{}, a.unknown("pin")
		}
	}
	return pin, nil
}

func (a *overrideAttr) uint32() (uint32, error) {
	v, err := strconv.ParseUint(a.Value, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("config: override %s: %s: %w", a.Pos, a.Key, err)
	}
	return uint32(v), nil
}

func (a *overrideAttr) unknown(kind string) error {
	return fmt.Errorf("config: override %s: unknown %s attribute %q", a.Pos, kind, a.Key)
}

// ParseLevel accepts high/low, true/false, on/off and 1/0.
func ParseLevel(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "true", "on", "1":
		return true, nil
	case "low", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid level %q", s)
}
