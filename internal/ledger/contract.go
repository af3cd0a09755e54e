package ledger

// ABI of the deployed OceanSealCert contract. issue stores block.timestamp under the id,
// verify returns it (0 when the id is unknown).
const contractABI = `[
	{"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"certId","type":"bytes32"},{"indexed":false,"name":"timestamp","type":"uint256"}],"name":"Issued","type":"event"},
	{"inputs":[],"name":"admin","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"","type":"bytes32"}],"name":"certificates","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"certId","type":"bytes32"}],"name":"issue","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"certId","type":"bytes32"}],"name":"verify","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`
