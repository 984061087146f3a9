package hci

// https://software-dl.ti.com/simplelink/esd/simplelink_cc13x2_sdk/1.60.00.29_new/exports/docs/ble5stack/vendor_specific_guide/BLE_Vendor_Specific_HCI_Guide/hci_interface.html

type PacketType uint8

const (
	PacketTypeCommand         PacketType = 0x01
	PacketTypeACLData         PacketType = 0x02
	PacketTypeSynchronousData PacketType = 0x03
	PacketTypeEvent           PacketType = 0x04
	PacketTypeExtendedCommand PacketType = 0x09
)

type Opcode uint16

const (
	OpcodeSetEventMask                 Opcode = 0x0C01
	OpcodeReset                        Opcode = 0x0C03
	OpcodeReadBDAddr                   Opcode = 0x1009
	OpcodeLESetEventMask               Opcode = 0x2001
	OpcodeLEReadLocalSupportedFeatures Opcode = 0x2003
	OpcodeLESetRandomAddress           Opcode = 0x2005
	OpcodeLESetAdvertisingParameters   Opcode = 0x2006
	OpcodeLESetAdvertisingData         Opcode = 0x2008
	OpcodeLESetAdvertisingEnable       Opcode = 0x200A
	OpcodeLERand                       Opcode = 0x2018
)

type EventCode uint8

const (
	EventCodeDisconnectionComplete    EventCode = 0x05
	EventCodeCommandComplete          EventCode = 0x0E
	EventCodeCommandStatus            EventCode = 0x0F
	EventCodeHardwareError            EventCode = 0x10
	EventCodeNumberOfCompletedPackets EventCode = 0x13
	EventCodeLEMeta                   EventCode = 0x3E
)

type LEMetaSubeventCode uint8

const (
	LEMetaSubeventCodeConnectionComplete         LEMetaSubeventCode = 0x01
	LEMetaSubeventCodeAdvertisingReport          LEMetaSubeventCode = 0x02
	LEMetaSubeventCodeConnectionUpdate           LEMetaSubeventCode = 0x03
	LEMetaSubeventCodeEnhancedConnectionComplete LEMetaSubeventCode = 0x0A
)
