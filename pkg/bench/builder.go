package bench

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/config"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// Option configures a TransportWrapperBuilder.
type Option func(*TransportWrapperBuilder)

// WithLogger routes wrapper events to l. The default logs through the
// standard library's default logger.
func WithLogger(l Logger) Option {
	return func(b *TransportWrapperBuilder) {
		if l == nil {
			l = NopLogger{}
		}
		b.logger = l
	}
}

type aliasDecl struct {
	name   string
	target string
}

// TransportWrapperBuilder accumulates configuration fragments. Nothing is
// resolved or merged until Build.
type TransportWrapperBuilder struct {
	transport transport.Transport
	logger    Logger

	pinAliases  []aliasDecl
	spiAliases  []aliasDecl
	i2cAliases  []aliasDecl
	uartAliases []aliasDecl

	pinConfs       []Declaration[PinConfiguration]
	spiConfs       []Declaration[SpiConfiguration]
	strappingConfs map[string][]Declaration[PinConfiguration]
}

// NewTransportWrapperBuilder starts a build around t. The resulting wrapper
// takes ownership of t.
func NewTransportWrapperBuilder(t transport.Transport, opts ...Option) *TransportWrapperBuilder {
	b := &TransportWrapperBuilder{
		transport:      t,
		logger:         NewStdLogger(nil),
		strappingConfs: make(map[string][]Declaration[PinConfiguration]),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddConfigurationFile records the declarations of one fragment. Fragments
// must be added in load order.
func (b *TransportWrapperBuilder) AddConfigurationFile(f *config.File) error {
	if f == nil {
		return fmt.Errorf("bench: nil configuration file")
	}
	for _, p := range f.Pins {
		if p.Name == "" {
			return fmt.Errorf("bench: %s: pin without name", sourceName(f))
		}
		if p.AliasOf != "" {
			b.pinAliases = append(b.pinAliases, aliasDecl{name: p.Name, target: p.AliasOf})
		}
		b.pinConfs = appendPinConf(b.pinConfs, p)
	}
	for _, s := range f.Strappings {
		if s.Name == "" {
			return fmt.Errorf("bench: %s: strapping without name", sourceName(f))
		}
		key := strings.ToUpper(s.Name)
		decls := b.strappingConfs[key]
		if decls == nil {
			decls = []Declaration[PinConfiguration]{}
		}
		for _, p := range s.Pins {
			decls = appendPinConf(decls, p)
		}
		b.strappingConfs[key] = decls
	}
	for _, s := range f.SPI {
		if s.Name == "" {
			return fmt.Errorf("bench: %s: spi without name", sourceName(f))
		}
		if s.AliasOf != "" {
			b.spiAliases = append(b.spiAliases, aliasDecl{name: s.Name, target: s.AliasOf})
		}
		if s.BitsPerSec != nil {
			b.spiConfs = append(b.spiConfs, Declaration[SpiConfiguration]{
				Name: s.Name,
				Conf: SpiConfiguration{BitsPerSec: s.BitsPerSec},
			})
		}
	}
	for _, i := range f.I2C {
		if i.Name == "" {
			return fmt.Errorf("bench: %s: i2c without name", sourceName(f))
		}
		if i.AliasOf != "" {
			b.i2cAliases = append(b.i2cAliases, aliasDecl{name: i.Name, target: i.AliasOf})
		}
	}
	for _, u := range f.UARTs {
		if u.Name == "" {
			return fmt.Errorf("bench: %s: uart without name", sourceName(f))
		}
		if u.AliasOf != "" {
			b.uartAliases = append(b.uartAliases, aliasDecl{name: u.Name, target: u.AliasOf})
		}
		// TODO: carry Baudrate/Parity into a UartConfiguration merged like
		// SpiConfiguration and apply it when the console port is opened.
	}
	return nil
}

func appendPinConf(list []Declaration[PinConfiguration], p config.Pin) []Declaration[PinConfiguration] {
	conf := PinConfiguration{Mode: p.Mode, Level: p.Level, PullMode: p.PullMode}
	if conf.IsEmpty() {
		return list
	}
	return append(list, Declaration[PinConfiguration]{Name: p.Name, Conf: conf})
}

func sourceName(f *config.File) string {
	if f.Source == "" {
		return "configuration"
	}
	return f.Source
}

// Build resolves and consolidates everything recorded so far. Any conflict or
// alias cycle aborts the build; there is no partially configured wrapper.
func (b *TransportWrapperBuilder) Build() (*TransportWrapper, error) {
	pinMap, err := buildAliasMap(transport.InterfaceGPIO, b.pinAliases)
	if err != nil {
		return nil, err
	}
	spiMap, err := buildAliasMap(transport.InterfaceSPI, b.spiAliases)
	if err != nil {
		return nil, err
	}
	i2cMap, err := buildAliasMap(transport.InterfaceI2C, b.i2cAliases)
	if err != nil {
		return nil, err
	}
	uartMap, err := buildAliasMap(transport.InterfaceUART, b.uartAliases)
	if err != nil {
		return nil, err
	}

	pinConf, err := Consolidate(transport.InterfaceGPIO, b.pinConfs, pinMap)
	if err != nil {
		return nil, err
	}
	strappings := make(map[string]map[string]PinConfiguration, len(b.strappingConfs))
	for _, name := range sortedKeys(b.strappingConfs) {
		conf, err := Consolidate(transport.InterfaceGPIO, b.strappingConfs[name], pinMap)
		if err != nil {
			return nil, fmt.Errorf("bench: strapping %s: %w", name, err)
		}
		strappings[name] = conf
	}
	spiConf, err := Consolidate(transport.InterfaceSPI, b.spiConfs, spiMap)
	if err != nil {
		return nil, err
	}

	return &TransportWrapper{
		backend:    &handle{t: b.transport},
		nullAlias:  firstNullAlias(b.pinAliases, pinMap),
		logger:     b.logger,
		pinMap:     pinMap,
		spiMap:     spiMap,
		i2cMap:     i2cMap,
		uartMap:    uartMap,
		pinConf:    pinConf,
		spiConf:    spiConf,
		strappings: strappings,
		nullPins:   make(map[string]*NullPin),
	}, nil
}

// buildAliasMap records alias declarations in load order. Declaring the same
// alias twice with different targets is a conflict like any other field.
func buildAliasMap(kind transport.InterfaceType, decls []aliasDecl) (AliasMap, error) {
	m := make(AliasMap, len(decls))
	for _, d := range decls {
		key := strings.ToUpper(d.name)
		prev, ok := m[key]
		if !ok {
			m[key] = d.target
			continue
		}
		if !strings.EqualFold(prev, d.target) {
			return nil, &ConflictError{
				Kind:     kind,
				Name:     key,
				Declared: d.name,
				Field:    "alias_of",
				Existing: prev,
				Incoming: d.target,
			}
		}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// firstNullAlias returns the first declared pin name that resolves to NULL,
// uppercased, or "" when no pin does.
func firstNullAlias(decls []aliasDecl, pinMap AliasMap) string {
	for _, d := range decls {
		name := strings.ToUpper(d.name)
		if name == NullPinName {
			continue
		}
		if canonical, err := pinMap.Resolve(name); err == nil && canonical == NullPinName {
			return name
		}
	}
	return ""
}
